package textutil

import "testing"

func TestMaskAndRestoreTags(t *testing.T) {
	text := `<i>Previously</i> on <font color="red">Overdub</font>`
	masked, tags := MaskTags(text)
	if len(tags) != 4 {
		t.Fatalf("expected 4 tags, got %d: %v", len(tags), tags)
	}
	if masked != "__TAG0__Previously__TAG1__ on __TAG2__Overdub__TAG3__" {
		t.Fatalf("unexpected masked text: %q", masked)
	}

	restored := RestoreTags(masked, tags)
	if restored != text {
		t.Fatalf("round trip mismatch: %q", restored)
	}
}

func TestMaskTagsWithoutMarkup(t *testing.T) {
	masked, tags := MaskTags("plain sentence")
	if masked != "plain sentence" || tags != nil {
		t.Fatalf("expected passthrough, got %q %v", masked, tags)
	}
}

func TestRestoreTagsToleratesTranslatorMangling(t *testing.T) {
	_, tags := MaskTags("<i>hello</i>")
	restored := RestoreTags("__tag0__ merhaba __ TAG 1 __", tags)
	if restored != "<i> merhaba </i>" {
		t.Fatalf("unexpected restored text: %q", restored)
	}
}

func TestRestoreTagsDropsUnknownPlaceholders(t *testing.T) {
	_, tags := MaskTags("<i>hi</i>")
	restored := RestoreTags("__TAG0__ hi __TAG7__", tags)
	if restored != "<i> hi " {
		t.Fatalf("unexpected restored text: %q", restored)
	}
}
