//go:build darwin || freebsd || linux

package tesseract

import (
	"errors"

	"github.com/ebitengine/purego"
)

func dlopen(names []string) (uintptr, error) {
	var errs []error
	for _, name := range names {
		h, err := purego.Dlopen(name, purego.RTLD_NOW|purego.RTLD_GLOBAL)
		if err == nil {
			return h, nil
		}
		errs = append(errs, err)
	}
	return 0, errors.Join(errs...)
}
