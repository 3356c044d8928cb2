package architecture_test

import (
	"bufio"
	"fmt"
	"go/parser"
	"go/token"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
)

type importRef struct {
	file string
	imp  string
}

func TestImportBoundaries(t *testing.T) {
	root, modulePath := moduleRoot(t)

	type violation struct {
		importRef
		rule string
	}
	var violations []violation
	for _, ref := range internalImports(t, root, modulePath) {
		for _, bad := range disallowedImports(layerFor(ref.file)) {
			if underPackage(ref.imp, modulePath+"/"+bad) {
				violations = append(violations, violation{importRef: ref, rule: bad})
				break
			}
		}
	}

	if len(violations) > 0 {
		var b strings.Builder
		b.WriteString("import boundary violations:\n")
		for _, v := range violations {
			fmt.Fprintf(&b, "- %s imports %q (disallowed: %q)\n", v.file, v.imp, v.rule)
		}
		t.Fatal(b.String())
	}
}

// Provider adapters are wired in one place so the rest of the tree only sees
// llm.Generator.
func TestClientsImportedOnlyByApp(t *testing.T) {
	root, modulePath := moduleRoot(t)

	var violations []importRef
	for _, ref := range internalImports(t, root, modulePath) {
		if !underPackage(ref.imp, modulePath+"/internal/clients") {
			continue
		}
		if strings.HasPrefix(ref.file, "internal/app/") || strings.HasPrefix(ref.file, "internal/clients/") {
			continue
		}
		violations = append(violations, ref)
	}

	if len(violations) > 0 {
		var b strings.Builder
		b.WriteString("internal/clients imports found outside internal/app:\n")
		for _, v := range violations {
			fmt.Fprintf(&b, "- %s imports %q\n", v.file, v.imp)
		}
		t.Fatal(b.String())
	}
}

func layerFor(rel string) string {
	for _, layer := range []string{"domain", "platform", "data", "modules", "clients", "services", "observability"} {
		if strings.HasPrefix(rel, "internal/"+layer+"/") {
			return layer
		}
	}
	return ""
}

func disallowedImports(layer string) []string {
	switch layer {
	case "domain":
		return []string{
			"internal/platform",
			"internal/data",
			"internal/modules",
			"internal/clients",
			"internal/services",
			"internal/http",
			"internal/app",
		}
	case "platform", "observability":
		return []string{
			"internal/data",
			"internal/clients",
			"internal/services",
			"internal/http",
			"internal/app",
		}
	case "data":
		return []string{
			"internal/modules",
			"internal/clients",
			"internal/services",
			"internal/http",
			"internal/app",
		}
	case "modules", "clients":
		return []string{
			"internal/services",
			"internal/http",
			"internal/app",
		}
	case "services":
		return []string{
			"internal/http",
			"internal/app",
			"internal/clients",
		}
	default:
		return nil
	}
}

func underPackage(imp, pkg string) bool {
	return imp == pkg || strings.HasPrefix(imp, pkg+"/")
}

func moduleRoot(t *testing.T) (string, string) {
	t.Helper()
	start, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	root, err := findModuleRoot(start)
	if err != nil {
		t.Fatalf("find module root: %v", err)
	}
	modulePath, err := readModulePath(filepath.Join(root, "go.mod"))
	if err != nil {
		t.Fatalf("read module path: %v", err)
	}
	return root, modulePath
}

// internalImports lists every module-internal import made by a file under internal/.
func internalImports(t *testing.T, root, modulePath string) []importRef {
	t.Helper()
	internalDir := filepath.Join(root, "internal")
	fset := token.NewFileSet()
	var out []importRef

	walkErr := filepath.WalkDir(internalDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			switch d.Name() {
			case ".git", "vendor", "node_modules", ".gocache":
				return filepath.SkipDir
			default:
				return nil
			}
		}
		if !strings.HasSuffix(path, ".go") {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		f, err := parser.ParseFile(fset, path, nil, parser.ImportsOnly)
		if err != nil {
			return err
		}
		for _, spec := range f.Imports {
			if spec == nil || spec.Path == nil {
				continue
			}
			imp, err := strconv.Unquote(spec.Path.Value)
			if err != nil || !strings.HasPrefix(imp, modulePath+"/") {
				continue
			}
			out = append(out, importRef{file: rel, imp: imp})
		}
		return nil
	})
	if walkErr != nil {
		t.Fatalf("walk internal/: %v", walkErr)
	}
	return out
}

func findModuleRoot(start string) (string, error) {
	dir := start
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("go.mod not found from %s", start)
		}
		dir = parent
	}
}

func readModulePath(goModPath string) (string, error) {
	f, err := os.Open(goModPath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "module ") {
			continue
		}
		mp := strings.TrimSpace(strings.TrimPrefix(line, "module "))
		if mp == "" {
			return "", fmt.Errorf("empty module path in %s", goModPath)
		}
		return mp, nil
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	return "", fmt.Errorf("module path not found in %s", goModPath)
}
