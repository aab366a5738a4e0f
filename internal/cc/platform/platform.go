// Package platform models target OS/architecture pairs and the predefined
// macros a C compiler conventionally seeds for each one (_WIN32, __linux__,
// __APPLE__, and so on). FrontendOptions.TargetOS/TargetArch select one of these
// environments to layer on top of the preprocessor's language-level
// predefined macros.
package platform

import (
	"cmp"
	"fmt"
	"slices"
)

// Environment is a name->integer-value table of predefined macros; the xcc
// package turns each entry into an object-like macro whose body is that
// value.
type Environment map[string]int

// Platform is an OS/Arch pair identifying a compilation target.
type Platform struct {
	OS   OS
	Arch Arch
}

func (p Platform) String() string { return fmt.Sprintf("%s/%s", p.OS, p.Arch) }

// Compare orders first by OS, then by Arch.
func Compare(a, b Platform) int {
	if d := cmp.Compare(a.OS, b.OS); d != 0 {
		return d
	}
	return cmp.Compare(a.Arch, b.Arch)
}

// Create builds a Platform from possibly-aliased OS/Arch names, rejecting
// unknown values.
func Create(os OS, arch Arch) (Platform, error) {
	p := Platform{OS: dealias(os, osAlias), Arch: dealias(arch, archAlias)}
	if !slices.Contains(allKnownOS, p.OS) {
		return p, fmt.Errorf("unknown OS %v, expected one of %v or an alias %v", p.OS, allKnownOS, osAlias)
	}
	if !slices.Contains(allKnownArch, p.Arch) {
		return p, fmt.Errorf("unknown architecture %v, expected one of %v or an alias %v", p.Arch, allKnownArch, archAlias)
	}
	return p, nil
}

// OS is an operating system identifier, matching @platforms//os constraint
// value names.
type OS string

const (
	android    OS = "android"
	chromiumos OS = "chromiumos"
	emscripten OS = "emscripten"
	freebsd    OS = "freebsd"
	fuchsia    OS = "fuchsia"
	haiku      OS = "haiku"
	ios        OS = "ios"
	linux      OS = "linux"
	netbsd     OS = "netbsd"
	none       OS = "none" // bare-metal
	openbsd    OS = "openbsd"
	osx        OS = "osx"
	qnx        OS = "qnx"
	wasi       OS = "wasi"
	windows    OS = "windows"
)

var osAlias = map[string]OS{"macos": osx}
var allKnownOS = []OS{android, chromiumos, emscripten, freebsd, fuchsia, haiku, ios, linux, netbsd, none, openbsd, osx, qnx, wasi, windows}

// Arch is a processor architecture identifier, matching @platforms//cpu
// constraint value names.
type Arch string

const (
	aarch32 Arch = "aarch32"
	aarch64 Arch = "aarch64"
	i386    Arch = "i386"
	riscv64 Arch = "riscv64"
	wasm32  Arch = "wasm32"
	wasm64  Arch = "wasm64"
	x86_64  Arch = "x86_64"
)

var archAlias = map[string]Arch{"arm": aarch32, "arm64": aarch64, "amd64": x86_64}
var allKnownArch = []Arch{aarch32, aarch64, i386, riscv64, wasm32, wasm64, x86_64}

// KnownPlatformEnv is the predefined-macro environment for each platform,
// populated in init.
var KnownPlatformEnv = map[Platform]Environment{}

func init() {
	windowsArchs := []Arch{i386, x86_64, aarch32, aarch64}
	addMacro("_WIN32", osArchPlatforms(windows, windowsArchs))
	addMacro("_WIN64", osArchPlatforms(windows, []Arch{x86_64, aarch64}))

	addMacros([]string{"linux", "__linux__", "__linux", "__gnu_linux__"}, osArchPlatforms(linux, allKnownArch))
	addMacro("__ANDROID__", osArchPlatforms(android, []Arch{aarch32, aarch64, x86_64}))
	addMacro("__CHROMEOS__", osArchPlatforms(chromiumos, []Arch{x86_64, aarch64}))

	unixOS := []OS{linux, android, chromiumos, freebsd, netbsd, openbsd, haiku, qnx}
	addMacros([]string{"unix", "__unix", "__unix__"}, platformsMatrix(unixOS, allKnownArch))

	addMacro("__EMSCRIPTEN__", platformsMatrix([]OS{emscripten}, []Arch{wasm32, wasm64}))
	addMacro("__wasi__", platformsMatrix([]OS{wasi}, []Arch{wasm32, wasm64}))

	addMacro("__FreeBSD__", platformsMatrix([]OS{freebsd}, []Arch{i386, x86_64, aarch64, riscv64}))
	addMacro("__NetBSD__", platformsMatrix([]OS{netbsd}, []Arch{i386, x86_64, aarch64, riscv64}))
	addMacro("__OpenBSD__", platformsMatrix([]OS{openbsd}, []Arch{i386, x86_64, aarch64, riscv64}))

	macArchs := []Arch{x86_64, aarch64}
	iosArchs := []Arch{aarch64}
	applePlatforms := slices.Concat(osArchPlatforms(osx, macArchs), osArchPlatforms(ios, iosArchs))
	addMacro("__APPLE__", applePlatforms)
	addMacro("__MACH__", applePlatforms)
	addMacro("TARGET_OS_OSX", osArchPlatforms(osx, macArchs))
	addMacro("TARGET_OS_IPHONE", osArchPlatforms(ios, iosArchs))

	addMacros([]string{"__x86_64__", "__x86_64", "__amd64", "__amd64__"}, archOsPlatforms(x86_64, allKnownOS))
	addMacros([]string{"__i386__", "__i386"}, archOsPlatforms(i386, allKnownOS))
	addMacros([]string{"__arm__", "__arm"}, archOsPlatforms(aarch32, allKnownOS))
	addMacros([]string{"__aarch64__", "__arm64", "__arm64__"}, archOsPlatforms(aarch64, allKnownOS))

	riscvOS := []OS{linux, freebsd, netbsd, openbsd, qnx, android, chromiumos, fuchsia}
	addMacro("__riscv", archOsPlatforms(riscv64, riscvOS))
}

func addMacroValue(name string, value int, platforms []Platform) {
	for _, p := range platforms {
		env, exists := KnownPlatformEnv[p]
		if !exists {
			env = make(Environment, 8)
			KnownPlatformEnv[p] = env
		}
		env[name] = value
	}
}

func addMacro(name string, platforms []Platform) { addMacroValue(name, 1, platforms) }

func addMacros(names []string, platforms []Platform) {
	for _, name := range names {
		addMacro(name, platforms)
	}
}

func osArchPlatforms(os OS, archs []Arch) []Platform {
	return append(platformsMatrix([]OS{os}, archs), Platform{OS: os})
}

func archOsPlatforms(arch Arch, oses []OS) []Platform {
	return append(platformsMatrix(oses, []Arch{arch}), Platform{Arch: arch})
}

func platformsMatrix(oses []OS, archs []Arch) []Platform {
	result := []Platform{}
	for _, os := range oses {
		for _, arch := range archs {
			result = append(result, Platform{OS: os, Arch: arch})
		}
	}
	return result
}

func dealias[T ~string](value T, aliases map[string]T) T {
	if d, exists := aliases[string(value)]; exists {
		return d
	}
	return value
}
