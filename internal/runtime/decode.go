package runtime

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// Decode copies a validated configuration map into a struct using its json tags.
// Input is weakly typed so "5" decodes into an int field.
func Decode(input map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return fmt.Errorf("failed to build decoder: %w", err)
	}
	if err := dec.Decode(input); err != nil {
		return fmt.Errorf("failed to decode config: %w", err)
	}
	return nil
}
