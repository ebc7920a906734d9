package browser

import (
	"os/exec"
	"runtime"
	"strings"
)

// candidateTable maps a browser kind to its ordered candidate install paths
// for the current platform. The first existing path wins for each kind.
func candidateTable() map[Kind][]string {
	switch runtime.GOOS {
	case "darwin":
		return map[Kind][]string{
			KindChrome: {
				"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
			},
			KindEdge: {
				"/Applications/Microsoft Edge.app/Contents/MacOS/Microsoft Edge",
			},
			KindChromium: {
				"/Applications/Chromium.app/Contents/MacOS/Chromium",
			},
			KindBrave: {
				"/Applications/Brave Browser.app/Contents/MacOS/Brave Browser",
			},
			KindFirefox: {
				"/Applications/Firefox.app/Contents/MacOS/firefox",
			},
		}
	case "linux":
		return map[Kind][]string{
			KindChrome: {
				"/usr/bin/google-chrome-stable",
				"/usr/bin/google-chrome",
			},
			KindEdge: {
				"/usr/bin/microsoft-edge-stable",
				"/usr/bin/microsoft-edge",
			},
			KindChromium: {
				"/usr/bin/chromium",
				"/usr/bin/chromium-browser",
				"/snap/bin/chromium",
			},
			KindBrave: {
				"/usr/bin/brave-browser",
				"/usr/bin/brave",
			},
			KindFirefox: {
				"/usr/bin/firefox",
				"/usr/bin/firefox-esr",
			},
		}
	case "windows":
		return map[Kind][]string{
			KindChrome: {
				`C:\Program Files\Google\Chrome\Application\chrome.exe`,
				`C:\Program Files (x86)\Google\Chrome\Application\chrome.exe`,
			},
			KindEdge: {
				`C:\Program Files (x86)\Microsoft\Edge\Application\msedge.exe`,
				`C:\Program Files\Microsoft\Edge\Application\msedge.exe`,
			},
			KindBrave: {
				`C:\Program Files\BraveSoftware\Brave-Browser\Application\brave.exe`,
			},
			KindFirefox: {
				`C:\Program Files\Mozilla Firefox\firefox.exe`,
			},
		}
	default:
		return nil
	}
}

// kindOrder fixes iteration order so Enumerate's results are deterministic.
var kindOrder = []Kind{KindChrome, KindEdge, KindChromium, KindBrave, KindFirefox}

// shellLookupNames is the closed set of binary names consulted on POSIX
// when the platform path table yields nothing.
var shellLookupNames = []string{
	"google-chrome", "google-chrome-stable", "chromium", "chromium-browser",
	"microsoft-edge", "microsoft-edge-stable", "brave-browser", "firefox",
}

// classify assigns a Kind by substring match on a resolved binary name:
// "edge", "chromium", "firefox", "brave", else "chrome".
func classify(name string) Kind {
	lower := strings.ToLower(name)
	switch {
	case strings.Contains(lower, "edge"):
		return KindEdge
	case strings.Contains(lower, "chromium"):
		return KindChromium
	case strings.Contains(lower, "firefox"):
		return KindFirefox
	case strings.Contains(lower, "brave"):
		return KindBrave
	default:
		return KindChrome
	}
}

func capabilities(kind Kind) (cdp, bidi bool) {
	if kind == KindFirefox {
		return false, true
	}
	return true, false
}

func descriptorFor(kind Kind, path string) Descriptor {
	cdp, bidi := capabilities(kind)
	return Descriptor{
		Name:       string(kind),
		Kind:       kind,
		Path:       path,
		SpeaksCDP:  cdp,
		SpeaksBiDi: bidi,
	}
}

// Enumerate walks the platform-keyed candidate path table and returns the
// first existing path per kind, in a fixed priority order. If nothing is
// found this way, it falls back to a name-resolution shell lookup over a
// small closed set of binary names. Safari and any browser with no
// CDP/BiDi capability are never returned: every descriptor Enumerate can
// produce has one of SpeaksCDP or SpeaksBiDi set.
//
// Enumerate never fails; an empty slice indicates nothing was found.
func Enumerate() []Descriptor {
	table := candidateTable()
	var found []Descriptor

	for _, kind := range kindOrder {
		for _, path := range table[kind] {
			if resolved, err := exec.LookPath(path); err == nil {
				found = append(found, descriptorFor(kind, resolved))
				break
			}
		}
	}

	if len(found) > 0 || runtime.GOOS == "windows" {
		return found
	}

	seen := make(map[Kind]bool, len(found))
	for _, d := range found {
		seen[d.Kind] = true
	}

	for _, name := range shellLookupNames {
		resolved, err := exec.LookPath(name)
		if err != nil {
			continue
		}
		kind := classify(name)
		if seen[kind] {
			continue
		}
		seen[kind] = true
		found = append(found, descriptorFor(kind, resolved))
	}

	return found
}

// priorityOrder is the fallback pick order when no preference is given.
var priorityOrder = []Kind{KindChrome, KindEdge, KindChromium, KindBrave}

// Pick selects a single descriptor from Enumerate's results. If preferred
// is non-empty, the first descriptor matching that kind AND the requisite
// capability (CDP for the Chromium family, BiDi for Firefox) is returned.
// Otherwise Pick falls back to priorityOrder. Pick never errors; it
// returns false when nothing suitable was found.
func Pick(descs []Descriptor, preferred Kind) (Descriptor, bool) {
	requiredCDP := preferred != KindFirefox

	if preferred != "" {
		for _, d := range descs {
			if d.Kind != preferred {
				continue
			}
			if requiredCDP && d.SpeaksCDP {
				return d, true
			}
			if !requiredCDP && d.SpeaksBiDi {
				return d, true
			}
		}
		return Descriptor{}, false
	}

	for _, kind := range priorityOrder {
		for _, d := range descs {
			if d.Kind == kind && d.SpeaksCDP {
				return d, true
			}
		}
	}
	return Descriptor{}, false
}
