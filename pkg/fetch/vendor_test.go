package fetch

import "testing"

func TestContainsFormat(t *testing.T) {
	formats := []string{"markdown", "screenshot"}
	if !containsFormat(formats, "screenshot") {
		t.Error("expected screenshot to be present")
	}
	if containsFormat(formats, "images") {
		t.Error("expected images to be absent")
	}
}

func TestChromedpActionFor_UnknownTypeSkipped(t *testing.T) {
	act := chromedpActionFor(Action{"type": "teleport"})
	if act != nil {
		t.Error("expected unknown action type to translate to nil")
	}
}

func TestChromedpActionFor_ClickRequiresSelector(t *testing.T) {
	if act := chromedpActionFor(Action{"type": "click"}); act != nil {
		t.Error("expected click without selector to translate to nil")
	}
	if act := chromedpActionFor(Action{"type": "click", "selector": "#submit"}); act == nil {
		t.Error("expected click with selector to translate to a chromedp action")
	}
}

func TestChromedpActionFor_Wait(t *testing.T) {
	if act := chromedpActionFor(Action{"type": "wait", "milliseconds": float64(500)}); act == nil {
		t.Error("expected wait action to translate")
	}
}

func TestExtractLinksAndImages_ResolvesRelative(t *testing.T) {
	html := `<html><body><a href="/a">A</a><a href="https://other.example/b">B</a><img src="/img.png"></body></html>`
	links, images := extractLinksAndImages(html, "https://example.com/page")
	if len(links) != 2 {
		t.Fatalf("expected 2 links, got %v", links)
	}
	if links[0] != "https://example.com/a" && links[1] != "https://example.com/a" {
		t.Errorf("expected relative link to resolve against base, got %v", links)
	}
	if len(images) != 1 || images[0] != "https://example.com/img.png" {
		t.Errorf("expected resolved image URL, got %v", images)
	}
}

func TestExtractLinksAndImages_IgnoresFragmentOnly(t *testing.T) {
	html := `<html><body><a href="#section">Jump</a></body></html>`
	links, _ := extractLinksAndImages(html, "https://example.com/page")
	if len(links) != 0 {
		t.Errorf("expected fragment-only links to be ignored, got %v", links)
	}
}
