//go:build windows

package tesseract

import "errors"

func dlopen(names []string) (uintptr, error) {
	return 0, errors.New("dynamic library loading is not supported on windows")
}
