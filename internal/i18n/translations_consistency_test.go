package i18n

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"io/fs"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"testing"

	"gopkg.in/yaml.v2"

	"github.com/iamwavecut/wafflebot/resources"
)

func TestTranslationsCoverUsedKeys(t *testing.T) {
	t.Parallel()

	used, err := collectUsedI18nKeys()
	if err != nil {
		t.Fatalf("collect used i18n keys: %v", err)
	}
	if len(used) == 0 {
		t.Fatalf("no i18n keys found in sources")
	}

	defined, err := loadTranslations("ru")
	if err != nil {
		t.Fatalf("load translations: %v", err)
	}

	var missing []string
	for _, key := range used {
		if value, ok := defined[key]; !ok || strings.TrimSpace(value) == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		t.Fatalf("missing translation keys:\n%s", strings.Join(missing, "\n"))
	}
}

func TestTranslationsKeepFormatVerbs(t *testing.T) {
	t.Parallel()

	defined, err := loadTranslations("ru")
	if err != nil {
		t.Fatalf("load translations: %v", err)
	}
	for key, value := range defined {
		if strings.Count(key, "%") != strings.Count(value, "%") {
			t.Fatalf("format verbs differ for %q: %q", key, value)
		}
	}
}

func TestGetFallsBackToKey(t *testing.T) {
	t.Parallel()

	if got := Get("Saved.", "en"); got != "Saved." {
		t.Fatalf("en = %q", got)
	}
	if got := Get("Saved.", "ru"); got != "Сохранено." {
		t.Fatalf("ru = %q", got)
	}
	if got := Get("no such key", "ru"); got != "no such key" {
		t.Fatalf("missing key = %q", got)
	}
	if got := Getf("Invalid value: %s", "ru", "x"); got != "Некорректное значение: x" {
		t.Fatalf("getf = %q", got)
	}
	if GetLanguageName("RU") != "Russian" || !Supported("en") || Supported("xx") {
		t.Fatalf("unexpected language table")
	}
}

func collectUsedI18nKeys() ([]string, error) {
	root, err := repoRoot()
	if err != nil {
		return nil, err
	}

	internalDir := filepath.Join(root, "internal")
	fileSet := token.NewFileSet()
	keys := make(map[string]struct{})

	err = filepath.WalkDir(internalDir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() || !strings.HasSuffix(path, ".go") || strings.HasSuffix(path, "_test.go") {
			return nil
		}

		node, err := parser.ParseFile(fileSet, path, nil, parser.SkipObjectResolution)
		if err != nil {
			return err
		}

		ast.Inspect(node, func(n ast.Node) bool {
			call, ok := n.(*ast.CallExpr)
			if !ok {
				return true
			}
			selector, ok := call.Fun.(*ast.SelectorExpr)
			if !ok || selector.Sel == nil || (selector.Sel.Name != "Get" && selector.Sel.Name != "Getf") {
				return true
			}
			pkgIdent, ok := selector.X.(*ast.Ident)
			if !ok || pkgIdent.Name != "i18n" {
				return true
			}
			if len(call.Args) < 1 {
				return true
			}
			value, ok := stringLiteralValue(call.Args[0])
			if !ok || value == "" {
				return true
			}
			keys[value] = struct{}{}
			return true
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	result := make([]string, 0, len(keys))
	for key := range keys {
		result = append(result, key)
	}
	sort.Strings(result)
	return result, nil
}

func loadTranslations(lang string) (map[string]string, error) {
	content, err := resources.FS.ReadFile("i18n/" + lang + ".yml")
	if err != nil {
		return nil, err
	}
	dict := map[string]string{}
	if err := yaml.Unmarshal(content, &dict); err != nil {
		return nil, err
	}
	return dict, nil
}

func stringLiteralValue(expr ast.Expr) (string, bool) {
	basic, ok := expr.(*ast.BasicLit)
	if !ok || basic.Kind != token.STRING {
		return "", false
	}
	value, err := strconv.Unquote(basic.Value)
	if err != nil {
		return "", false
	}
	return value, true
}

func repoRoot() (string, error) {
	_, currentFile, _, ok := runtime.Caller(0)
	if !ok {
		return "", fmt.Errorf("runtime caller is unavailable")
	}
	return filepath.Clean(filepath.Join(filepath.Dir(currentFile), "..", "..")), nil
}
