// Package palette assigns deterministic colors to tree nodes and storage
// categories. The same name or extension always maps to the same color, in
// every process on every run, so charts stay stable across rescans.
package palette

import (
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

// Directory fill colors, picked for mutual contrast. Assignment is by name
// hash, so siblings usually differ and renames reshuffle only the renamed.
var directoryPalette = []string{
	"#0984e3", "#6c5ce7", "#00b894", "#e17055", "#00cec9",
	"#fdcb6e", "#e84393", "#74b9ff", "#a29bfe", "#55efc4",
	"#fab1a0", "#ff7675", "#81ecec", "#ffeaa7",
}

// Colors for synthetic node kinds.
const (
	FreeSpaceColor = "#2d3436"
	OtherColor     = "#b2bec3"
	ProtectedColor = "#636e72"
)

// Storage categories for the disk breakdown, in display order.
var categoryOrder = []string{
	"Apps", "Documents", "Photos", "Videos", "Music",
	"Developer", "Archives", "System", "Other",
}

var categoryColors = map[string]string{
	"Apps":      "#00cec9",
	"Documents": "#6c5ce7",
	"Photos":    "#e84393",
	"Videos":    "#d63031",
	"Music":     "#e17055",
	"Developer": "#0984e3",
	"Archives":  "#fdcb6e",
	"System":    "#636e72",
	"Other":     "#b2bec3",
}

var categoryExtensions = map[string][]string{
	"Apps": {".app", ".dmg", ".pkg", ".ipa", ".exe", ".msi", ".deb", ".rpm", ".appimage"},
	"Documents": {
		".pdf", ".doc", ".docx", ".xls", ".xlsx", ".ppt", ".pptx",
		".txt", ".rtf", ".pages", ".numbers", ".keynote", ".csv",
		".odt", ".ods", ".odp", ".md",
	},
	"Photos": {
		".jpg", ".jpeg", ".png", ".gif", ".bmp", ".tiff", ".tif",
		".heic", ".heif", ".raw", ".cr2", ".nef", ".webp", ".svg",
		".ico", ".psd", ".ai",
	},
	"Videos": {
		".mp4", ".mov", ".avi", ".mkv", ".wmv", ".flv", ".webm",
		".m4v", ".mpg", ".mpeg", ".3gp",
	},
	"Music": {
		".mp3", ".wav", ".flac", ".aac", ".ogg", ".wma", ".m4a",
		".aiff", ".alac",
	},
	"Developer": {
		".py", ".js", ".ts", ".jsx", ".tsx", ".html", ".css",
		".scss", ".json", ".xml", ".yaml", ".yml", ".sh", ".swift",
		".java", ".c", ".cpp", ".h", ".rb", ".go", ".rs", ".php",
		".kt", ".m", ".dart", ".r", ".sql", ".graphql", ".proto",
		".toml", ".ini", ".cfg", ".conf", ".env", ".gitignore",
		".dockerfile", ".makefile", ".gradle", ".cmake",
		".o", ".so", ".dylib", ".a", ".class", ".jar", ".war",
	},
	"Archives": {
		".zip", ".tar", ".gz", ".rar", ".7z", ".bz2", ".xz",
		".tgz", ".iso",
	},
}

var extToCategory = func() map[string]string {
	m := make(map[string]string, 128)
	for cat, exts := range categoryExtensions {
		for _, e := range exts {
			m[e] = cat
		}
	}
	return m
}()

// hashString is a 31-multiplier polynomial rolling hash. Stable across
// runs, unlike Go's map iteration or hash/maphash seeds.
func hashString(s string) uint32 {
	var h uint32
	for i := 0; i < len(s); i++ {
		h = h*31 + uint32(s[i])
	}
	return h
}

// ForDirectory picks a palette color by name hash.
func ForDirectory(name string) string {
	return directoryPalette[int(hashString(name))%len(directoryPalette)]
}

// ForFile resolves the extension's category color, or falls back to a
// hash-derived hue for extensions no category claims. The fallback hue is
// confined to 170°–330° so surprise extensions stay in the cool range
// instead of clashing with the warm category colors.
func ForFile(ext string) string {
	ext = strings.ToLower(ext)
	if cat, ok := extToCategory[ext]; ok {
		return categoryColors[cat]
	}
	hue := 170.0 + float64(hashString(ext)%160)
	return colorful.Hsl(hue, 0.55, 0.55).Hex()
}

// CategoryFor maps an extension to its storage category, "Other" when
// unclaimed.
func CategoryFor(ext string) string {
	if cat, ok := extToCategory[strings.ToLower(ext)]; ok {
		return cat
	}
	return "Other"
}

// CategoryColor returns the fixed color for a storage category.
func CategoryColor(name string) string {
	if c, ok := categoryColors[name]; ok {
		return c
	}
	return categoryColors["Other"]
}

// Categories lists the storage categories in display order.
func Categories() []string {
	out := make([]string, len(categoryOrder))
	copy(out, categoryOrder)
	return out
}

// Brighten lightens a hex color for hover highlights. Amount is in [0,1];
// invalid input comes back unchanged.
func Brighten(hex string, amount float64) string {
	c, err := colorful.Hex(hex)
	if err != nil {
		return hex
	}
	h, s, l := c.Hsl()
	l += (1 - l) * amount
	if l > 1 {
		l = 1
	}
	return colorful.Hsl(h, s, l).Hex()
}
