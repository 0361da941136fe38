package dto

type PluginInfo struct {
	Name             string
	Version          string
	SourceModulePath string
	TypeName         string
}

type LoadFailureInfo struct {
	ModulePath string
	Error      string
}

type ScanResult struct {
	ScanID       string
	FolderPath   string
	ModuleCount  int
	Plugins      []PluginInfo
	LoadFailures []LoadFailureInfo
}

type DoctorResult struct {
	Path          string
	DisplayName   string
	Module        string
	Recognized    bool
	MatchedLabels []string
	Detail        string
}
