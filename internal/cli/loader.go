package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"

	"github.com/amgator/databucket-app/internal/rule"
)

// LoadMode controls how errors are handled during filter loading.
type LoadMode int

const (
	// LoadModeFailFast stops on the first error encountered.
	LoadModeFailFast LoadMode = iota
	// LoadModeCollectAll collects all errors before returning.
	LoadModeCollectAll
)

// LoadedFilter is one filter definition extracted from a CUE file, with
// its rule tree already normalized to the canonical encoding.
type LoadedFilter struct {
	Name        string
	Description string
	Criteria    []byte
}

// LoadResult contains the results of loading filter definitions from a
// directory.
type LoadResult struct {
	Filters   []LoadedFilter
	CUEValue  cue.Value // The raw CUE value for additional processing
	FileCount int       // Number of CUE files found
}

// LoadError represents an error that occurred during filter loading.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// LoadFilterDefs loads filter definitions from a directory of CUE files.
// Definitions live under a top-level "filter" struct, one field per filter:
//
//	filter: heavyGoods: {
//		description: "unprocessed heavy goods"
//		rules: and: [{"$.status": "new"}, {"$.weight": [">", 100]}]
//	}
//
// Each rules tree runs through the same decoding as a wire filter, so a
// definition that would be rejected by the API is rejected here too.
// If mode is LoadModeFailFast, returns on first error.
// If mode is LoadModeCollectAll, collects all errors.
func LoadFilterDefs(dir string, mode LoadMode) (*LoadResult, []error) {
	var errs []error

	// Verify directory exists
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("filters directory not found: %s", dir)}}
	}
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing filters directory: %v", err)}}
	}
	if !info.IsDir() {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("not a directory: %s", dir)}}
	}

	// Find CUE files
	cueFiles, err := FindCUEFiles(dir)
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}}
	}
	if len(cueFiles) == 0 {
		return nil, []error{&LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", dir)}}
	}

	// Load CUE instances
	ctx := cuecontext.New()
	cfg := &load.Config{Dir: dir}
	instances := load.Instances([]string{"."}, cfg)
	if len(instances) == 0 {
		return nil, []error{&LoadError{Code: ErrCodeLoadFailed, Message: "no CUE instances loaded"}}
	}

	// Check for load errors
	inst := instances[0]
	if inst.Err != nil {
		return nil, []error{&LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("loading CUE files: %v", inst.Err)}}
	}

	// Build value from instance
	value := ctx.BuildInstance(inst)
	if err := value.Err(); err != nil {
		return nil, []error{&LoadError{Code: ErrCodeBuildFailed, Message: fmt.Sprintf("building CUE value: %v", err)}}
	}

	result := &LoadResult{
		CUEValue:  value,
		FileCount: len(cueFiles),
	}

	filtersVal := value.LookupPath(cue.ParsePath("filter"))
	if filtersVal.Exists() {
		iter, iterErr := filtersVal.Fields()
		if iterErr != nil {
			errs = append(errs, &LoadError{Code: ErrCodeGeneric, Message: fmt.Sprintf("iterating filters: %v", iterErr)})
			if mode == LoadModeFailFast {
				return result, errs
			}
		} else {
			for iter.Next() {
				def, defErr := extractFilterDef(iter.Label(), iter.Value())
				if defErr != nil {
					errs = append(errs, defErr)
					if mode == LoadModeFailFast {
						return result, errs
					}
					continue
				}
				result.Filters = append(result.Filters, *def)
			}
		}
	}

	if len(result.Filters) == 0 && len(errs) == 0 {
		errs = append(errs, &LoadError{Code: ErrCodeGeneric, Message: "no filter definitions found"})
	}

	return result, errs
}

// FindCUEFiles walks the directory and returns all .cue file paths.
func FindCUEFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && filepath.Ext(path) == ".cue" {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

// extractFilterDef converts one CUE filter field into a loaded filter,
// normalizing its rule tree through the canonical encoding.
func extractFilterDef(name string, val cue.Value) (*LoadedFilter, error) {
	def := &LoadedFilter{Name: name}

	if descVal := val.LookupPath(cue.ParsePath("description")); descVal.Exists() {
		desc, err := descVal.String()
		if err != nil {
			return nil, &LoadError{
				Code:    ErrCodeBuildFailed,
				Message: fmt.Sprintf("filter %q: description must be a string: %v", name, err),
				Pos:     descVal.Pos(),
			}
		}
		def.Description = desc
	}

	rulesVal := val.LookupPath(cue.ParsePath("rules"))
	if !rulesVal.Exists() {
		return nil, &LoadError{
			Code:    ErrCodeBuildFailed,
			Message: fmt.Sprintf("filter %q: missing rules", name),
			Pos:     val.Pos(),
		}
	}

	var rules map[string]any
	if err := rulesVal.Decode(&rules); err != nil {
		return nil, &LoadError{
			Code:    ErrCodeBuildFailed,
			Message: fmt.Sprintf("filter %q: rules must be a struct: %v", name, err),
			Pos:     rulesVal.Pos(),
		}
	}

	node, err := rule.DecodeRules(rules)
	if err != nil {
		return nil, &LoadError{
			Code:    ErrCodeBuildFailed,
			Message: fmt.Sprintf("filter %q: %v", name, err),
			Pos:     rulesVal.Pos(),
		}
	}
	if node == nil {
		return nil, &LoadError{
			Code:    ErrCodeBuildFailed,
			Message: fmt.Sprintf("filter %q: rules must not be empty", name),
			Pos:     rulesVal.Pos(),
		}
	}

	criteria, err := rule.MarshalCanonical(node)
	if err != nil {
		return nil, &LoadError{
			Code:    ErrCodeGeneric,
			Message: fmt.Sprintf("filter %q: %v", name, err),
		}
	}
	def.Criteria = criteria
	return def, nil
}
