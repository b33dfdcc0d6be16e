package projectconfig

import (
	"fmt"
	"reflect"
	"slices"
	"strings"

	"github.com/go-viper/mapstructure/v2"
)

// Settings are the editor settings that override the configuration file.
// Empty values leave the file's values in place.
type Settings struct {
	JavaPath       string   `mapstructure:"tlaplus.java.path"`
	Tla2ToolsPath  string   `mapstructure:"tlaplus.tla2tools.path"`
	Tla2TexOptions []string `mapstructure:"tlaplus.tla2tex.options"`
	PDFCommand     string   `mapstructure:"tlaplus.pdf.convertCommand"`
}

// DecodeSettings decodes the flat settings map sent by the editor. Keys it
// does not know are ignored. tla2tex options may be given as a list or as a
// single space-separated string.
func DecodeSettings(raw map[string]any) (Settings, error) {
	var s Settings
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       splitFieldsHook,
		WeaklyTypedInput: true,
		Result:           &s,
	})
	if err != nil {
		return Settings{}, fmt.Errorf("creating settings decoder: %w", err)
	}
	if err := dec.Decode(raw); err != nil {
		return Settings{}, fmt.Errorf("decoding editor settings: %w", err)
	}
	s.JavaPath = strings.TrimSpace(s.JavaPath)
	s.Tla2ToolsPath = strings.TrimSpace(s.Tla2ToolsPath)
	s.PDFCommand = strings.TrimSpace(s.PDFCommand)
	return s, nil
}

func splitFieldsHook(from reflect.Type, to reflect.Type, data any) (any, error) {
	if from.Kind() != reflect.String || to != reflect.TypeOf([]string(nil)) {
		return data, nil
	}
	return strings.Fields(data.(string)), nil
}

// apply overlays the non-empty settings onto cfg.
func (s Settings) apply(cfg *ProjectConfig) {
	if s.JavaPath != "" {
		cfg.Tools.Java = s.JavaPath
	}
	if s.Tla2ToolsPath != "" {
		cfg.Tools.Tla2Tools = s.Tla2ToolsPath
	}
	if len(s.Tla2TexOptions) > 0 {
		cfg.Tools.Tla2TexOptions = slices.Clone(s.Tla2TexOptions)
	}
	if s.PDFCommand != "" {
		cfg.PDF.ConvertCommand = s.PDFCommand
	}
}
