package question

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"golang.org/x/mod/semver"
)

// SupportedMajor is the schemaVersion major this build reads.
const SupportedMajor = "v1"

//go:embed schema/assessment.schema.json
var assessmentSchemaJSON []byte

const assessmentSchemaURL = "schema://assessment.json"

var (
	schemaOnce     sync.Once
	compiledSchema *jsonschema.Schema
	schemaErr      error
)

func assessmentSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		var def any
		if err := json.Unmarshal(assessmentSchemaJSON, &def); err != nil {
			schemaErr = fmt.Errorf("parse assessment schema: %w", err)
			return
		}
		c := jsonschema.NewCompiler()
		if err := c.AddResource(assessmentSchemaURL, def); err != nil {
			schemaErr = fmt.Errorf("add resource: %w", err)
			return
		}
		compiledSchema, schemaErr = c.Compile(assessmentSchemaURL)
	})
	return compiledSchema, schemaErr
}

// checkSchema validates a decoded JSON document against the assessment file schema.
func checkSchema(doc any) error {
	s, err := assessmentSchema()
	if err != nil {
		return err
	}
	if err := s.Validate(doc); err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}
	return nil
}

// VersionValidator checks that schemaVersion is valid semver with a supported major.
type VersionValidator struct{}

func (v *VersionValidator) Name() string { return "version" }

func (v *VersionValidator) Validate(a *Assessment) ValidationErrors {
	ver := a.SchemaVersion
	if ver != "" && ver[0] != 'v' {
		ver = "v" + ver
	}
	if !semver.IsValid(ver) {
		return ValidationErrors{{
			Validator: v.Name(),
			Message:   fmt.Sprintf("schemaVersion %q is not a semantic version", a.SchemaVersion),
		}}
	}
	if semver.Major(ver) != SupportedMajor {
		return ValidationErrors{{
			Validator: v.Name(),
			Message:   fmt.Sprintf("schemaVersion %s is not supported (want %s.x)", a.SchemaVersion, SupportedMajor),
		}}
	}
	return nil
}
