package capability

import (
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/hupe1980/roundtable/core"
)

// ValidateArguments checks call arguments against the tool's declared input
// schema before dispatch. A nil or empty schema accepts anything. Violations
// are reported as InvalidArguments without touching the provider.
func ValidateArguments(desc ToolDescriptor, args map[string]any) error {
	if len(desc.InputSchema) == 0 {
		return nil
	}
	if args == nil {
		args = map[string]any{}
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewGoLoader(desc.InputSchema),
		gojsonschema.NewGoLoader(args),
	)
	if err != nil {
		// The schema itself is unusable; do not block the call on it.
		return nil
	}
	if result.Valid() {
		return nil
	}

	details := make([]string, 0, len(result.Errors()))
	for _, verr := range result.Errors() {
		details = append(details, verr.String())
	}
	return NewError(core.ErrorKindInvalidArguments, desc.Name, strings.Join(details, "; "))
}
