package gpu

import (
	"fmt"
	"testing"

	"github.com/rs/zerolog"

	"github.com/gpufind/gpufind/glob"
	"github.com/gpufind/gpufind/regex"
)

// availableDrivers returns every backend that can run on the test host. The
// CPU pair is always present; Metal and Vulkan join when a device exists, so
// on GPU hosts the equivalence suite covers all four.
func availableDrivers(t *testing.T) []Driver {
	t.Helper()
	drivers := []Driver{NewScalarDriver(), NewSimdDriver()}

	log := zerolog.Nop()
	if d, err := NewMetalDriver(log); err == nil {
		drivers = append(drivers, d)
	}
	if d, err := NewVulkanDriver(log); err == nil {
		drivers = append(drivers, d)
	}

	t.Cleanup(func() {
		for _, d := range drivers {
			d.Close()
		}
	})
	return drivers
}

func buildBatch(t *testing.T, paths []string) *Batch {
	t.Helper()
	b := NewBatch()
	for _, p := range paths {
		if err := b.Add(p); err != nil {
			t.Fatalf("Add(%q): %v", p, err)
		}
	}
	return b
}

// globCase is one (paths, pattern, options) triple with its specified match
// count.
type globCase struct {
	name    string
	paths   []string
	pattern string
	opts    glob.Options
	want    uint32
}

var globCases = []globCase{
	{"exact_duplicates", []string{"hello.txt", "world.txt", "hello.txt"}, "hello.txt", 0, 2},
	{"star_extension", []string{"file.txt", "file.doc", "other.txt"}, "*.txt", 0, 2},
	{"single_question", []string{"a.txt", "ab.txt", "abc.txt"}, "?.txt", 0, 1},
	{"digit_class", []string{"1.txt", "5.txt", "9.txt", "a.txt"}, "[0-5].txt", 0, 2},
	{"case_fold", []string{"Hello.TXT", "hello.txt", "HELLO.txt"}, "hello.txt", glob.CaseInsensitive, 3},
	{"basename", []string{"/path/to/file.txt", "/other/path/file.txt", "/path/file.doc"}, "file.txt", 0, 2},
	{"full_path", []string{"/path/to/file.txt", "/other/path/file.txt", "/path/file.doc"}, "*/to/*", glob.MatchPath, 1},
	{"period_star", []string{".hidden", "visible", ".bashrc"}, "*", glob.Period, 1},
	{"period_dotstar", []string{".hidden", "visible", ".bashrc"}, ".*", glob.Period, 2},
	{"negated_class", []string{"a1", "b2", "c3"}, "[!a]?", 0, 2},
	{"literal_bracket", []string{"x[", "x]"}, "x[", 0, 1},
	{"empty_paths", []string{"", "a", ""}, "*", 0, 3},
	{"deep_backtrack", []string{"aXbYcZd", "abcd", "aXbY"}, "a*b*c*d", 0, 2},
}

// TestDrivers_GlobEquivalence checks that every available backend produces
// the scalar reference's exact match vector, slot for slot.
func TestDrivers_GlobEquivalence(t *testing.T) {
	drivers := availableDrivers(t)
	ref := drivers[0]

	for _, tc := range globCases {
		t.Run(tc.name, func(t *testing.T) {
			b := buildBatch(t, tc.paths)
			p, err := glob.Compile(tc.pattern, tc.opts)
			if err != nil {
				t.Fatalf("Compile: %v", err)
			}

			want, err := ref.MatchNames(b, p)
			if err != nil {
				t.Fatalf("%s: %v", ref.Name(), err)
			}
			if want.Count != tc.want {
				t.Fatalf("scalar count = %d, want %d", want.Count, tc.want)
			}

			for _, d := range drivers[1:] {
				got, err := d.MatchNames(b, p)
				if err != nil {
					t.Fatalf("%s: %v", d.Name(), err)
				}
				assertSameResults(t, d.Name(), want, got)
			}
		})
	}
}

var regexCases = []struct {
	name    string
	paths   []string
	pattern string
	fold    bool
	want    uint32
}{
	{"src_c_files", []string{"/p/src/a.c", "/p/src/a.h", "/src/q/b.c", "/q/b.c"}, `.*/src/.*\.c`, false, 2},
	{"alternation", []string{"main.go", "main.rs", "main.py"}, `main\.(go|rs)`, false, 2},
	{"classes", []string{"v1.2.3", "v12.0", "devel"}, `v[0-9]+\.[0-9.]*`, false, 2},
	{"fold", []string{"README", "readme", "ReadMe"}, `readme`, true, 3},
	{"anchored_noop", []string{"abc", "xabc"}, `^abc$`, false, 1},
	{"empty_path", []string{"", "x"}, `.*`, false, 2},
}

// TestDrivers_RegexEquivalence mirrors the glob equivalence check for the
// NFA byte-code interpreter.
func TestDrivers_RegexEquivalence(t *testing.T) {
	drivers := availableDrivers(t)
	ref := drivers[0]

	for _, tc := range regexCases {
		t.Run(tc.name, func(t *testing.T) {
			b := buildBatch(t, tc.paths)
			prog, err := regex.Compile(tc.pattern, tc.fold)
			if err != nil {
				t.Fatalf("Compile: %v", err)
			}

			want, err := ref.MatchRegex(b, prog)
			if err != nil {
				t.Fatalf("%s: %v", ref.Name(), err)
			}
			if want.Count != tc.want {
				t.Fatalf("scalar count = %d, want %d", want.Count, tc.want)
			}

			for _, d := range drivers[1:] {
				got, err := d.MatchRegex(b, prog)
				if err != nil {
					t.Fatalf("%s: %v", d.Name(), err)
				}
				assertSameResults(t, d.Name(), want, got)
			}
		})
	}
}

// TestDrivers_LargeBatchEquivalence pushes a batch past the parallel
// threshold so the SIMD driver actually shards.
func TestDrivers_LargeBatchEquivalence(t *testing.T) {
	paths := make([]string, 0, 4096)
	for i := 0; i < 4096; i++ {
		switch i % 3 {
		case 0:
			paths = append(paths, fmt.Sprintf("/data/log/app-%d.txt", i))
		case 1:
			paths = append(paths, fmt.Sprintf("/data/bin/tool-%d", i))
		default:
			paths = append(paths, fmt.Sprintf("/data/.cache/entry-%d.tmp", i))
		}
	}

	drivers := availableDrivers(t)
	ref := drivers[0]
	b := buildBatch(t, paths)
	p := glob.MustCompile("*.txt", 0)

	want, err := ref.MatchNames(b, p)
	if err != nil {
		t.Fatalf("scalar: %v", err)
	}
	for _, d := range drivers[1:] {
		got, err := d.MatchNames(b, p)
		if err != nil {
			t.Fatalf("%s: %v", d.Name(), err)
		}
		assertSameResults(t, d.Name(), want, got)
	}
}

func assertSameResults(t *testing.T, name string, want, got *DispatchResult) {
	t.Helper()
	if got.Count != want.Count {
		t.Errorf("%s count = %d, want %d", name, got.Count, want.Count)
	}
	if len(got.Results) != len(want.Results) {
		t.Fatalf("%s result slots = %d, want %d", name, len(got.Results), len(want.Results))
	}
	for i := range want.Results {
		if got.Results[i] != want.Results[i] {
			t.Fatalf("%s slot %d = %+v, want %+v", name, i, got.Results[i], want.Results[i])
		}
	}
}
