package rag

import (
	"reflect"
	"testing"

	"github.com/RNS-Forge/Collexa.AI/engine/domain"
	"github.com/RNS-Forge/Collexa.AI/engine/semantic"
)

func labeled(label string) semantic.Result {
	return semantic.Result{Segment: domain.Segment{Meta: domain.SegmentMeta{SourceLabel: label}}}
}

func TestExtractSources_DedupKeepsFirstSeenOrder(t *testing.T) {
	results := []semantic.Result{labeled("A"), labeled("B"), labeled("A"), labeled("C")}
	got := ExtractSources(results)
	want := []string{"A", "B", "C"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ExtractSources = %v, want %v", got, want)
	}
}

func TestExtractSources_Empty(t *testing.T) {
	got := ExtractSources(nil)
	if got == nil || len(got) != 0 {
		t.Errorf("expected empty non-nil slice, got %v", got)
	}
}

func TestExtractVideoLinks(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "watch and short links in order",
			text: "Watch https://www.youtube.com/watch?v=abc123 and https://youtu.be/xyz789",
			want: []string{"https://www.youtube.com/watch?v=abc123", "https://youtu.be/xyz789"},
		},
		{
			name: "duplicates kept",
			text: "See https://youtu.be/aaa then again https://youtu.be/aaa",
			want: []string{"https://youtu.be/aaa", "https://youtu.be/aaa"},
		},
		{
			name: "case insensitive host",
			text: "Try HTTPS://WWW.YOUTUBE.COM/WATCH?v=MixedCase",
			want: []string{"HTTPS://WWW.YOUTUBE.COM/WATCH?v=MixedCase"},
		},
		{
			name: "vimeo and direct media",
			text: "https://vimeo.com/12345 plus http://cdn.example.com/lecture.mp4 done",
			want: []string{"https://vimeo.com/12345", "http://cdn.example.com/lecture.mp4"},
		},
		{
			name: "no links",
			text: "Nothing to see here.",
			want: []string{},
		},
		{
			name: "plain page urls ignored",
			text: "Read https://en.wikipedia.org/wiki/Backpropagation instead",
			want: []string{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractVideoLinks(tt.text)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ExtractVideoLinks(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}
