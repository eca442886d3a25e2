package template

import (
	"reflect"
	"testing"
)

func TestRender(t *testing.T) {
	tests := []struct {
		name        string
		subject     string
		body        string
		subs        Substitutions
		wantSubject string
		wantBody    string
	}{
		{
			name:        "replaces in subject and body",
			subject:     "Hi [name]",
			body:        "Dear [name], read [title]",
			subs:        Substitutions{TokenName: "Ann", TokenTitle: "Spring"},
			wantSubject: "Hi Ann",
			wantBody:    "Dear Ann, read Spring",
		},
		{
			name:        "unmatched tokens stay verbatim",
			subject:     "[title] for [name]",
			body:        "[content] [unknown] [link]",
			subs:        Substitutions{TokenTitle: "News"},
			wantSubject: "News for [name]",
			wantBody:    "[content] [unknown] [link]",
		},
		{
			name:        "every occurrence replaced",
			subject:     "",
			body:        "[name] [name] [name]",
			subs:        Substitutions{TokenName: "Bo"},
			wantSubject: "",
			wantBody:    "Bo Bo Bo",
		},
		{
			name:        "values are not escaped",
			subject:     "[title]",
			body:        "<p>[content]</p>",
			subs:        Substitutions{TokenTitle: "A & B", TokenContent: "<b>bold</b>"},
			wantSubject: "A & B",
			wantBody:    "<p><b>bold</b></p>",
		},
		{
			name:        "empty substitutions",
			subject:     "Hi [name]",
			body:        "[link]",
			subs:        nil,
			wantSubject: "Hi [name]",
			wantBody:    "[link]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Render(tt.subject, tt.body, tt.subs)
			if got.Subject != tt.wantSubject {
				t.Errorf("Subject = %q, want %q", got.Subject, tt.wantSubject)
			}
			if got.Body != tt.wantBody {
				t.Errorf("Body = %q, want %q", got.Body, tt.wantBody)
			}
		})
	}
}

func TestRender_TwoPasses(t *testing.T) {
	tmpl := &Template{Subject: "Hi [title]", Body: "[content] [link] [name] [unsubscribe_link]"}

	post := RenderTemplate(tmpl, Substitutions{
		TokenContent: "Read this",
		TokenLink:    "https://example.com/post?id=P123",
		TokenTitle:   "Launch",
		TokenSummary: "short",
	})
	if post.Body != "Read this https://example.com/post?id=P123 [name] [unsubscribe_link]" {
		t.Fatalf("post pass body = %q", post.Body)
	}

	recipient := Render(post.Subject, post.Body, Substitutions{
		TokenName:            "Ann",
		TokenUnsubscribeLink: "https://api.example.com/newsletter/unsubscribe?email=ann%40x.com",
	})
	if recipient.Subject != "Hi Launch" {
		t.Errorf("Subject = %q, want Hi Launch", recipient.Subject)
	}
	want := "Read this https://example.com/post?id=P123 Ann https://api.example.com/newsletter/unsubscribe?email=ann%40x.com"
	if recipient.Body != want {
		t.Errorf("Body = %q, want %q", recipient.Body, want)
	}
}

func TestTokens(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"Hi [name], see [link] and [name]", []string{"[name]", "[link]"}},
		{"no tokens", nil},
		{"[] and [not a token] and [[title]", []string{"[title]"}},
		{"unclosed [name", nil},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := Tokens(tt.in); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Tokens(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestReplace(t *testing.T) {
	tests := []struct {
		name  string
		in    string
		pairs []string
		want  string
	}{
		{"in order", "[a] [b]", []string{"[a]", "1", "[b]", "2"}, "1 2"},
		{"earlier value seen by later pair", "[a]", []string{"[a]", "[b]", "[b]", "2"}, "2"},
		{"later value left alone", "[b]", []string{"[a]", "1", "[b]", "[a]"}, "[a]"},
		{"odd pair ignored", "[a]", []string{"[a]"}, "[a]"},
		{"empty token skipped", "x", []string{"", "y"}, "x"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Replace(tt.in, tt.pairs...); got != tt.want {
				t.Errorf("Replace() = %q, want %q", got, tt.want)
			}
		})
	}
}
