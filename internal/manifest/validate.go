package manifest

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shinji-kodama/seqfixtures/internal/model"
)

// ValidationError is one problem found in a manifest.
type ValidationError struct {
	// Field is the path of the offending field, e.g. "releases[1].fixtures[0].source".
	Field string

	// Message describes what's wrong with the field value.
	Message string
}

// Error implements the error interface for ValidationError.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks a manifest and returns every problem found
// (empty list = valid manifest), so users can fix them in one pass.
//
// Checks performed:
//   - package is set and at least one release is listed
//   - versions are valid release strings and unique
//   - every release lists its fixtures (verification needs the expected set)
//   - fixture names are unique per release and contain no path separators
//   - fixture modes are valid; import fixtures name their source file and
//     main fixtures do not
//   - no two fixtures of a release share a source file
//   - fixtures have a module, unless the release names an external driver
func Validate(m *Manifest) []ValidationError {
	var errs []ValidationError

	if m.Package == "" {
		errs = append(errs, ValidationError{Field: "package", Message: "package name is required"})
	}
	if len(m.Releases) == 0 {
		errs = append(errs, ValidationError{Field: "releases", Message: "at least one release is required"})
	}

	seenVersions := make(map[string]bool)
	for i, r := range m.Releases {
		field := fmt.Sprintf("releases[%d]", i)

		if err := model.ValidateVersion(r.Version); err != nil {
			errs = append(errs, ValidationError{Field: field + ".version", Message: err.Error()})
		} else if seenVersions[r.Version] {
			errs = append(errs, ValidationError{
				Field:   field + ".version",
				Message: fmt.Sprintf("version %s is listed more than once", r.Version),
			})
		}
		seenVersions[r.Version] = true

		if len(r.Fixtures) == 0 {
			errs = append(errs, ValidationError{Field: field + ".fixtures", Message: "at least one fixture is required"})
		}

		seenNames := make(map[string]bool)
		seenSources := make(map[string]string)
		for j, f := range r.Fixtures {
			fixtureField := fmt.Sprintf("%s.fixtures[%d]", field, j)
			errs = append(errs, validateFixture(fixtureField, f, r.Driver != "", seenNames)...)
			seenNames[f.Name] = true

			if f.Source == "" {
				continue
			}
			if other, ok := seenSources[f.Source]; ok {
				errs = append(errs, ValidationError{
					Field:   fixtureField + ".source",
					Message: fmt.Sprintf("source %q is already used by fixture %q", f.Source, other),
				})
				continue
			}
			seenSources[f.Source] = f.Name
		}
	}

	return errs
}

// validateFixture checks a single fixture entry. External drivers produce
// their own files, so module and mode only matter for rendered drivers.
func validateFixture(field string, f model.Fixture, externalDriver bool, seenNames map[string]bool) []ValidationError {
	var errs []ValidationError

	switch {
	case f.Name == "":
		errs = append(errs, ValidationError{Field: field + ".name", Message: "fixture name is required"})
	case strings.ContainsAny(f.Name, `/\`) || f.Name == "." || f.Name == "..":
		errs = append(errs, ValidationError{Field: field + ".name", Message: fmt.Sprintf("fixture name %q must be a plain file stem", f.Name)})
	case strings.HasSuffix(f.Name, model.SeqExtension):
		errs = append(errs, ValidationError{Field: field + ".name", Message: fmt.Sprintf("fixture name %q must not include the .seq extension", f.Name)})
	case seenNames[f.Name]:
		errs = append(errs, ValidationError{Field: field + ".name", Message: fmt.Sprintf("fixture %q is listed more than once", f.Name)})
	}

	if externalDriver {
		return errs
	}

	if f.Module == "" {
		errs = append(errs, ValidationError{Field: field + ".module", Message: "generator module is required"})
	}
	if !f.Mode.IsValid() {
		errs = append(errs, ValidationError{Field: field + ".mode", Message: fmt.Sprintf("invalid mode %q (valid: import, main)", f.Mode)})
	}
	if f.Mode == model.ModeMain && f.Source != "" {
		errs = append(errs, ValidationError{
			Field:   field + ".source",
			Message: "main fixtures write their destination directly and must not name a source",
		})
	}
	if f.Mode == model.ModeImport {
		switch {
		case f.Source == "":
			errs = append(errs, ValidationError{Field: field + ".source", Message: "import fixtures must name the file the generator writes"})
		case strings.ContainsAny(f.Source, `/\`):
			errs = append(errs, ValidationError{Field: field + ".source", Message: fmt.Sprintf("source %q must be a file name in the working directory", f.Source)})
		}
	}

	return errs
}

// joinValidationErrors folds a list of validation errors into one error
// that still unwraps to each ValidationError.
func joinValidationErrors(list []ValidationError) error {
	errs := make([]error, 0, len(list))
	for i := range list {
		errs = append(errs, &list[i])
	}
	return errors.Join(errs...)
}
