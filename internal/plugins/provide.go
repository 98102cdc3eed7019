package plugins

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
)

const (
	ProvideName = "provide"

	// ProvideModule is the virtual module added to BuildOptions.Inject.
	ProvideModule = "webassets:provide"

	provideNamespace = "provide"
)

// Provide makes free identifiers resolve to the default export of a module,
// for example $ and jQuery to "jquery". Dotted identifiers such as
// window.jQuery are supported through the build Define, see ProvideDefines.
func Provide(provide map[string]string, resolveDir string) api.Plugin {
	return api.Plugin{
		Name: ProvideName,
		Setup: func(build api.PluginBuild) {
			if len(provide) == 0 {
				return
			}

			build.OnResolve(api.OnResolveOptions{Filter: "^" + regexp.QuoteMeta(ProvideModule) + "$"},
				func(args api.OnResolveArgs) (api.OnResolveResult, error) {
					return api.OnResolveResult{Path: ProvideModule, Namespace: provideNamespace}, nil
				})

			build.OnLoad(api.OnLoadOptions{Filter: ".*", Namespace: provideNamespace},
				func(args api.OnLoadArgs) (api.OnLoadResult, error) {
					contents := ProvideShim(provide)
					return api.OnLoadResult{
						Contents:   &contents,
						ResolveDir: resolveDir,
						Loader:     api.LoaderJS,
					}, nil
				})
		},
	}
}

// ProvideShim generates the inject module, one default import per module
// exported under a generated name.
func ProvideShim(provide map[string]string) string {
	var b strings.Builder
	for i, module := range provideModules(provide) {
		local := provideLocal(i)
		fmt.Fprintf(&b, "import %s from %s;\n", local, strconv.Quote(module))
		fmt.Fprintf(&b, "export { %s };\n", local)
	}
	return b.String()
}

// ProvideDefines maps each provided identifier to the name the shim exports
// for its module. esbuild replaces the identifier with the injected export.
func ProvideDefines(provide map[string]string) map[string]string {
	locals := make(map[string]string, len(provide))
	for i, module := range provideModules(provide) {
		locals[module] = provideLocal(i)
	}

	defines := make(map[string]string, len(provide))
	for ident, module := range provide {
		defines[ident] = locals[module]
	}
	return defines
}

func provideModules(provide map[string]string) []string {
	seen := map[string]bool{}
	modules := make([]string, 0, len(provide))
	for _, module := range provide {
		if !seen[module] {
			seen[module] = true
			modules = append(modules, module)
		}
	}
	sort.Strings(modules)
	return modules
}

func provideLocal(i int) string {
	return fmt.Sprintf("__provide_%d", i)
}
