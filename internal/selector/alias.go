package selector

// Alias exposes a Selector under a fixed name such as "@container" so it can
// be used in selector text, including its named filters ("@container:named").
type Alias struct {
	Name     string
	Selector Selector
}

// Match implements Parser.
func (a Alias) Match(text string) bool {
	return text == a.Name
}

// Parse implements Parser.
func (a Alias) Parse(string) (Pattern, error) {
	return a.Selector.Matcher(), nil
}

// Filter implements FilterProvider.
func (a Alias) Filter(name string, args []string) FilterFunc {
	return a.Selector.Filter(name, args)
}

// Aliases of the domain selectors
const (
	ContainerAlias = "@container"
	MenuAlias      = "@menu"
	ImageAlias     = "@image"
	FileAlias      = "@file"
)
