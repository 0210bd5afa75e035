package internalcheck

import (
	"fmt"
	"sort"
	"strings"
	"testing"

	"golang.org/x/tools/go/packages"
)

const (
	modulePath  = "github.com/srcres/modelasset-go"
	backendPath = modulePath + "/pkg/modelasset/internal/backend"
)

// Only the backend may touch raw memory or a foreign runtime.
var boundaryImports = []string{
	"unsafe",
	"github.com/ebitengine/purego",
	"github.com/tetratelabs/wazero",
}

func TestFFIIsolation(t *testing.T) {
	cfg := &packages.Config{Mode: packages.NeedName | packages.NeedImports}
	pkgs, err := packages.Load(cfg, modulePath+"/...")
	if err != nil {
		t.Fatalf("load packages: %v", err)
	}
	if len(pkgs) == 0 {
		t.Fatal("no packages loaded")
	}

	var findings []string
	for _, pkg := range pkgs {
		if pkg.PkgPath == backendPath {
			continue
		}
		for imp := range pkg.Imports {
			for _, banned := range boundaryImports {
				if imp == banned || strings.HasPrefix(imp, banned+"/") {
					findings = append(findings, fmt.Sprintf("%s imports %s", pkg.PkgPath, imp))
				}
			}
		}
	}
	sort.Strings(findings)
	if len(findings) > 0 {
		t.Fatalf("native boundary violation:\n%s", strings.Join(findings, "\n"))
	}
}
