package main

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"

	"github.com/jangler/tuning/mts"
	"github.com/pkg/errors"
)

const configPath = "config"

const defaultInfoTemplate = `{{.Name | default "(unnamed)"}} ({{.Kind}}), steps {{.Lo}} to {{.Hi}}` +
	`{{if .GroupSize}}, period of {{.GroupSize}} steps and ratio {{.GroupRatio}}{{end}}` +
	`{{if .FineSteps}}, {{.FineSteps}} fine steps{{end}}\n` +
	`{{range .Notes}}{{printf "%6d" .Step}}  {{.Name | trunc 10 | printf "%-10s"}}` +
	` {{printf "%12.6f" .Ratio}} {{printf "%10.3f" .Cents}} c {{printf "%10.3f" .Frequency}} Hz\n{{end}}`

type settings struct {
	DefaultFineSteps   int
	InfoTemplate       string
	LogLevel           string
	MidiOutPortNumber  int
	MtsDeviceID        int
	MtsProgram         int
	ReferenceFrequency float64
	ReferenceKey       int
}

func defaultSettings() *settings {
	opt := mts.DefaultOptions()
	return &settings{
		InfoTemplate:       defaultInfoTemplate,
		LogLevel:           "info",
		MtsDeviceID:        int(opt.DeviceID),
		MtsProgram:         int(opt.Program),
		ReferenceFrequency: opt.ReferenceFrequency,
		ReferenceKey:       opt.ReferenceKey,
	}
}

// load settings from the config directory next to the executable, then from
// path if it is not empty
func loadSettings(path string, warn func(string)) *settings {
	s := defaultSettings()
	if exe, err := os.Executable(); err == nil {
		p := filepath.Join(filepath.Dir(exe), configPath, "settings.csv")
		if records, err := readCSV(p); err == nil {
			s.applyRecords(records, warn)
		} else if !os.IsNotExist(err) {
			warn(err.Error())
		}
	}
	if path != "" {
		if records, err := readCSV(path); err == nil {
			s.applyRecords(records, warn)
		} else {
			warn(err.Error())
		}
	}
	return s
}

// apply CSV records
func (s *settings) applyRecords(records [][]string, warn func(string)) {
	v := reflect.ValueOf(s).Elem()
	for _, rec := range records {
		success := false
		if len(rec) == 2 {
			if field := v.FieldByName(rec[0]); field.IsValid() {
				switch field.Kind() {
				case reflect.Int:
					if i, err := strconv.Atoi(rec[1]); err == nil {
						field.SetInt(int64(i))
						success = true
					}
				case reflect.Float64:
					if f, err := strconv.ParseFloat(rec[1], 64); err == nil {
						field.SetFloat(f)
						success = true
					}
				case reflect.String:
					field.SetString(rec[1])
					success = true
				}
			}
		}
		if !success {
			warn(fmt.Sprintf("bad settings record: %v", rec))
		}
	}
}

// return the dump options described by the settings
func (s *settings) mtsOptions(name string) (mts.Options, error) {
	if s.MtsDeviceID < 0 || s.MtsDeviceID > 0x7f {
		return mts.Options{}, errors.Errorf("MtsDeviceID %d out of range [0, 127]", s.MtsDeviceID)
	}
	if s.MtsProgram < 0 || s.MtsProgram > 0x7f {
		return mts.Options{}, errors.Errorf("MtsProgram %d out of range [0, 127]", s.MtsProgram)
	}
	return mts.Options{
		DeviceID:           byte(s.MtsDeviceID),
		Program:            byte(s.MtsProgram),
		Name:               name,
		ReferenceKey:       s.ReferenceKey,
		ReferenceFrequency: s.ReferenceFrequency,
	}, nil
}

func (s *settings) logLevel() slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return l
}

// template text, with \n escapes allowed so it fits in one CSV field
func (s *settings) infoTemplate() string {
	return strings.ReplaceAll(s.InfoTemplate, `\n`, "\n")
}

// read records from a CSV file
func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	r := csv.NewReader(f)
	r.TrimLeadingSpace = true
	r.Comment = '#'
	return r.ReadAll()
}
