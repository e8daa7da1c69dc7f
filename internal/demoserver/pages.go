package demoserver

import "fmt"

// EnvGlobal is the window property the overlay reads the page's environment from.
const EnvGlobal = "__A11Y_LENS_ENV__"

// PageVersion is one revision of a fixture page.
type PageVersion struct {
	HTML string

	// Expect lists the axe rule ids this revision is known to violate.
	Expect []string
}

// PageDefinition holds all versions of a single page.
type PageDefinition struct {
	Path        string
	Description string
	Versions    map[int]PageVersion
}

// MaxVersion returns the highest version defined for the page.
func (p PageDefinition) MaxVersion() int {
	maxV := 1
	for v := range p.Versions {
		if v > maxV {
			maxV = v
		}
	}
	return maxV
}

// Version returns version v, falling back to the closest lower version.
func (p PageDefinition) Version(v int) (PageVersion, bool) {
	for ; v >= 1; v-- {
		if pv, ok := p.Versions[v]; ok {
			return pv, true
		}
	}
	return PageVersion{}, false
}

// GetAllPages returns all demo page definitions.
func GetAllPages() []PageDefinition {
	return []PageDefinition{
		getHomePage(),
		getBrokenPage(),
		getFormPage(),
		envPage("/env/production", "production"),
		envPage("/env/staging", "staging"),
		envPage("/env/local", "local"),
	}
}

func layout(title, head, body string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="utf-8">
    <title>%s</title>
%s</head>
<body>
<main>
%s
</main>
</body>
</html>`, title, head, body)
}

// ===== HOME PAGE =====
func getHomePage() PageDefinition {
	return PageDefinition{
		Path:        "/",
		Description: "Index of fixtures; has no violations",
		Versions: map[int]PageVersion{
			1: {HTML: layout("a11ylens fixtures", "", `    <h1>a11ylens fixtures</h1>
    <nav aria-label="Fixtures">
        <ul>
            <li><a href="/broken">Known violations</a></li>
            <li><a href="/form">Form labels</a></li>
            <li><a href="/env/production">Production page</a></li>
            <li><a href="/env/staging">Staging page</a></li>
            <li><a href="/env/local">Local page</a></li>
            <li><a href="/demo/control">Control panel</a></li>
        </ul>
    </nav>`)},
		},
	}
}

// ===== BROKEN PAGE =====
func getBrokenPage() PageDefinition {
	return PageDefinition{
		Path:        "/broken",
		Description: "Image, button and contrast defects, fixed one by one in later versions",
		Versions: map[int]PageVersion{
			1: {
				HTML: layout("Broken page", "", `    <h1>Broken page</h1>
    <img id="hero" src="data:image/gif;base64,R0lGODlhAQABAAAAACw=">
    <button id="close"></button>
    <p id="faint" style="color:#ccc;background:#fff">Barely readable text</p>
    <a id="more" href="#"></a>`),
				Expect: []string{"image-alt", "button-name", "color-contrast", "link-name"},
			},
			2: {
				HTML: layout("Broken page", "", `    <h1>Broken page</h1>
    <img id="hero" src="data:image/gif;base64,R0lGODlhAQABAAAAACw=" alt="Hero banner">
    <button id="close" aria-label="Close"></button>
    <p id="faint" style="color:#ccc;background:#fff">Barely readable text</p>
    <a id="more" href="#"></a>`),
				Expect: []string{"color-contrast", "link-name"},
			},
			3: {
				HTML: layout("Fixed page", "", `    <h1>Fixed page</h1>
    <img id="hero" src="data:image/gif;base64,R0lGODlhAQABAAAAACw=" alt="Hero banner">
    <button id="close" aria-label="Close"></button>
    <p id="faint" style="color:#333;background:#fff">Readable text</p>
    <a id="more" href="/">Back to fixtures</a>`),
			},
		},
	}
}

// ===== FORM PAGE =====
func getFormPage() PageDefinition {
	return PageDefinition{
		Path:        "/form",
		Description: "Inputs and a select without labels",
		Versions: map[int]PageVersion{
			1: {
				HTML: layout("Form", "", `    <h1>Contact</h1>
    <form>
        <fieldset>
            <input id="name" type="text">
            <input id="email" type="email" placeholder="Email">
            <select id="topic"><option>General</option></select>
        </fieldset>
        <button type="submit">Send</button>
    </form>`),
				Expect: []string{"label", "select-name"},
			},
			2: {
				HTML: layout("Form", "", `    <h1>Contact</h1>
    <form>
        <fieldset>
            <legend>Your details</legend>
            <label for="name">Name</label> <input id="name" type="text">
            <label for="email">Email</label> <input id="email" type="email">
            <label for="topic">Topic</label> <select id="topic"><option>General</option></select>
        </fieldset>
        <button type="submit">Send</button>
    </form>`),
			},
		},
	}
}

// ===== ENVIRONMENT PAGES =====

// envPage sets the page environment global before any other script runs.
// The unlabeled image gives the overlay something to report when it shows.
func envPage(path, name string) PageDefinition {
	head := fmt.Sprintf("    <script>window.%s = %q;</script>\n", EnvGlobal, name)
	return PageDefinition{
		Path:        path,
		Description: fmt.Sprintf("Declares window.%s = %q", EnvGlobal, name),
		Versions: map[int]PageVersion{
			1: {
				HTML: layout(name+" page", head, fmt.Sprintf(`    <h1>Running in %s</h1>
    <img id="logo" src="data:image/gif;base64,R0lGODlhAQABAAAAACw=">`, name)),
				Expect: []string{"image-alt"},
			},
		},
	}
}
