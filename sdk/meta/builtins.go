package meta

// Builtins is the runtime's own type universe: the SDK interfaces and base
// types every host resolves without touching the filesystem. Module
// documents may reference these names freely.
func Builtins() []Type {
	return []Type{
		{Name: "plugdir/sdk.Plugin", Kind: "interface"},
		{Name: "plugdir/sdk.Command", Kind: "interface", Implements: []string{"plugdir/sdk.Plugin"}},
		{Name: "plugdir/sdk.Analyzer", Kind: "interface", Implements: []string{"plugdir/sdk.Plugin"}},
		{Name: "plugdir/sdk.Renderer", Kind: "interface", Implements: []string{"plugdir/sdk.Plugin"}},
		{Name: "plugdir/sdk.Base", Kind: "struct", Implements: []string{"plugdir/sdk.Plugin"}},
	}
}
