package seed

import (
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
)

// LoadMode controls how errors are handled during seed loading.
type LoadMode int

const (
	// LoadModeFailFast stops on the first error encountered.
	LoadModeFailFast LoadMode = iota
	// LoadModeCollectAll collects all errors before returning.
	LoadModeCollectAll
)

// Load reads and validates all CUE seed files in a directory.
// If mode is LoadModeFailFast, returns on first error.
// If mode is LoadModeCollectAll, collects all errors.
func Load(dir string, mode LoadMode) (*Data, []error) {
	var errs []error

	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, []error{&SeedError{Field: "dir", Message: fmt.Sprintf("seed directory not found: %s", dir)}}
	}
	if err != nil {
		return nil, []error{&SeedError{Field: "dir", Message: fmt.Sprintf("error accessing seed directory: %v", err)}}
	}
	if !info.IsDir() {
		return nil, []error{&SeedError{Field: "dir", Message: fmt.Sprintf("not a directory: %s", dir)}}
	}

	cueFiles, err := FindCUEFiles(dir)
	if err != nil {
		return nil, []error{&SeedError{Field: "dir", Message: fmt.Sprintf("error scanning directory: %v", err)}}
	}
	if len(cueFiles) == 0 {
		return nil, []error{&SeedError{Field: "dir", Message: fmt.Sprintf("no CUE files found in %s", dir)}}
	}

	ctx := cuecontext.New()
	cfg := &load.Config{Dir: dir}
	instances := load.Instances([]string{"."}, cfg)
	if len(instances) == 0 {
		return nil, []error{&SeedError{Field: "cue", Message: "no CUE instances loaded"}}
	}

	inst := instances[0]
	if inst.Err != nil {
		return nil, []error{&SeedError{Field: "cue", Message: fmt.Sprintf("loading CUE files: %v", inst.Err)}}
	}

	value := ctx.BuildInstance(inst)
	if err := value.Err(); err != nil {
		return nil, []error{&SeedError{Field: "cue", Message: fmt.Sprintf("building CUE value: %v", err)}}
	}

	data := &Data{}
	seen := make(map[string]map[string]bool)

	recordsVal := value.LookupPath(cue.ParsePath("records"))
	if recordsVal.Exists() {
		collections, compileErr := compileRecords(recordsVal, seen)
		if compileErr != nil {
			errs = append(errs, compileErr)
			if mode == LoadModeFailFast {
				return data, errs
			}
		}
		data.Collections = collections
	}

	notesVal := value.LookupPath(cue.ParsePath("notifications"))
	if notesVal.Exists() {
		notifications, compileErr := compileNotifications(notesVal)
		if compileErr != nil {
			errs = append(errs, compileErr)
			if mode == LoadModeFailFast {
				return data, errs
			}
		}
		data.Notifications = notifications
	}

	if len(data.Collections) == 0 && len(data.Notifications) == 0 && len(errs) == 0 {
		errs = append(errs, &SeedError{Field: "cue", Message: "no records or notifications found in seed files"})
	}

	return data, errs
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
