package smartcast

import (
	"strings"

	"github.com/golangci/plugin-module-register/register"
	"golang.org/x/tools/go/analysis"

	"github.com/YuitoSato/gosmartcast/smartcast/internal"
)

func init() {
	register.Plugin("smartcast", New)
}

// Settings are the golangci-lint settings of the plugin.
type Settings struct {
	// Contracts is a contract file applied after the project's .smartcast.yaml.
	Contracts string `json:"contracts"`
	// Ignore lists package paths to skip; a trailing "/..." matches subpackages.
	Ignore []string `json:"ignore"`
}

func New(settings any) (register.LinterPlugin, error) {
	s, err := register.DecodeSettings[Settings](settings)
	if err != nil {
		return nil, err
	}
	return &plugin{settings: s}, nil
}

type plugin struct {
	settings Settings
}

func (p *plugin) BuildAnalyzers() ([]*analysis.Analyzer, error) {
	if p.settings.Contracts != "" {
		if err := Analyzer.Flags.Set("contracts", p.settings.Contracts); err != nil {
			return nil, err
		}
	}
	if len(p.settings.Ignore) > 0 {
		internal.SetIgnorePackages(strings.Join(p.settings.Ignore, ","))
	}
	return []*analysis.Analyzer{Analyzer}, nil
}

func (p *plugin) GetLoadMode() string {
	return register.LoadModeTypesInfo
}
