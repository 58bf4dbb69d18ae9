package service

import (
	"go/parser"
	"go/token"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
)

func TestCorePackages_DoNotImportOuterLayers(t *testing.T) {
	forbidden := []string{
		"github.com/rankwise/seo-crm/internal/api",
		"github.com/rankwise/seo-crm/internal/infrastructure",
		"github.com/labstack/echo",
	}

	for _, dir := range []string{".", "../domain", "../ports"} {
		files, err := filepath.Glob(filepath.Join(dir, "*.go"))
		if err != nil {
			t.Fatalf("glob %s: %v", dir, err)
		}
		for _, path := range files {
			f, err := parser.ParseFile(token.NewFileSet(), path, nil, parser.ImportsOnly)
			if err != nil {
				t.Fatalf("parse %s: %v", path, err)
			}
			for _, imp := range f.Imports {
				ip, _ := strconv.Unquote(imp.Path.Value)
				for _, prefix := range forbidden {
					if ip == prefix || strings.HasPrefix(ip, prefix+"/") {
						t.Errorf("%s imports %s", path, ip)
					}
				}
			}
		}
	}
}
