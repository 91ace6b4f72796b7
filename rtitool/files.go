package main

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/jangler/tuning"
	"github.com/jangler/tuning/mts"
	"github.com/jangler/tuning/scala"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const (
	tuningExt = ".tun"
	yamlExt   = ".yaml"
	sclExt    = ".scl"
	sysexExt  = ".syx"
)

// return the lowercase extension of path, treating .yml as .yaml
func fileExt(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".yml" {
		ext = yamlExt
	}
	return ext
}

// load a tuning in the format given by the file extension; anything that is
// not a scale or yaml file is read as a binary tuning of either generation
func loadTuning(path string) (*tuning.Tuning, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var t *tuning.Tuning
	switch fileExt(path) {
	case sclExt:
		t, err = scala.Read(f)
	case yamlExt:
		t = tuning.New()
		err = yaml.NewDecoder(f).Decode(t)
	default:
		t, err = tuning.Load(f)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "load %s", path)
	}
	return t, nil
}

// save a tuning in the format given by the file extension
func saveTuning(path string, t *tuning.Tuning, s *settings) (err error) {
	var write func(*os.File) error
	switch fileExt(path) {
	case tuningExt:
		write = func(f *os.File) error { return t.Serialize(f) }
	case yamlExt:
		write = func(f *os.File) error {
			enc := yaml.NewEncoder(f)
			if err := enc.Encode(t); err != nil {
				return err
			}
			return enc.Close()
		}
	case sclExt:
		write = func(f *os.File) error { return scala.Write(f, t, path) }
	case sysexExt:
		opt, err := s.mtsOptions(t.Name())
		if err != nil {
			return err
		}
		write = func(f *os.File) error { return mts.Write(f, t, opt) }
	default:
		return errors.Errorf("unknown file extension %q, use %s, %s, %s or %s",
			filepath.Ext(path), tuningExt, yamlExt, sclExt, sysexExt)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return errors.Wrapf(write(f), "save %s", path)
}
