// Package xtf inspects the header of INTERLIS transfer files.
package xtf

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/Gobusters/ectolinq"
)

const (
	ModelKEK            = "VSA_KEK_2019_LV95"
	ModelDSS            = "DSS_2015_LV95"
	ModelSIA405Abwasser = "SIA405_ABWASSER_2015_LV95"
	ModelSIA405Wasser   = "SIA405_WASSER_LV95"

	// Unknown is returned when no declared model is supported.
	Unknown = ""
)

// Priority ranks the supported models, most specific first. Transfer files
// also declare the models they extend, so the most specific one decides.
var Priority = []string{ModelKEK, ModelDSS, ModelSIA405Abwasser, ModelSIA405Wasser}

var nameAttr = regexp.MustCompile(`\bNAME\s*=\s*"([^"]*)"`)

// DeclaredModels returns the NAME of every MODEL element inside the MODELS
// section, in file order. Scanning stops at the end of the section.
func DeclaredModels(r io.Reader) ([]string, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)
	scanner.Split(scanTags)

	models := []string{}
	inModels := false
	for scanner.Scan() {
		tag := strings.TrimSpace(scanner.Text())
		upper := strings.ToUpper(tag)

		switch {
		case strings.HasPrefix(upper, "</MODELS"):
			return models, nil
		case strings.HasPrefix(upper, "<MODELS"):
			inModels = true
		case inModels && strings.HasPrefix(upper, "<MODEL ") || inModels && strings.HasPrefix(upper, "<MODEL\t"):
			if m := nameAttr.FindStringSubmatch(tag); m != nil {
				models = append(models, m[1])
			}
		case strings.HasPrefix(upper, "<DATASECTION"):
			return models, nil
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read transfer header: %w", err)
	}
	return models, nil
}

// Detect returns the highest ranked supported model declared by the file,
// or Unknown.
func Detect(r io.Reader) (string, error) {
	models, err := DeclaredModels(r)
	if err != nil {
		return Unknown, err
	}
	return Pick(models), nil
}

// Pick returns the highest ranked supported model among declared.
func Pick(declared []string) string {
	for _, candidate := range Priority {
		if ectolinq.Contains(declared, candidate) {
			return candidate
		}
	}
	return Unknown
}

func DetectFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return Unknown, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()
	return Detect(f)
}

// scanTags splits the input after every '>' so one token holds at most one
// tag, whatever the line layout of the file.
func scanTags(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexByte(data, '>'); i >= 0 {
		token = data[:i+1]
		if start := bytes.LastIndexByte(token, '<'); start >= 0 {
			token = token[start:]
		}
		return i + 1, token, nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}
