package chunk

// DefaultSkipForward and DefaultSkipBack are the snapping/semantic
// chunkers' built-in disqualifier lists: common abbreviations and URL
// tokens that should not be treated as sentence stops even though they
// are immediately followed (forward) or preceded (back) by the
// delimiter.
var (
	DefaultSkipForward = []string{
		"com", "org", "net", "io", "co", "gov", "edu",
	}
	DefaultSkipBack = []string{
		"e.g", "i.e", "etc", "Mr", "Mrs", "Ms", "Dr", "Prof", "Inc", "Ltd", "vs", "Jr", "Sr",
	}
)
