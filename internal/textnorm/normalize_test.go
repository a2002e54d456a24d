package textnorm

import (
	"reflect"
	"testing"
)

func TestNormalizeSteps(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want []string
	}{
		{"empty", "", []string{}},
		{"blank", "   \n\t", []string{}},
		{"lowercase and stop words", "The Reserve Bank of India", []string{"reserve", "bank", "india"}},
		{"url removed", "visit https://example.com/x?y=1 now please", []string{"visit", "now", "please"}},
		{"www removed", "see www.fake.in/story today", []string{"see"}},
		{"html removed", "<p>Cancer <b>cure</b></p> found", []string{"cancer", "cure", "found"}},
		{"digits and punctuation", "GDP grew 7.2% in Q3!", []string{"gdp", "grew"}},
		{"short tokens", "an ox is at my farm", []string{"farm"}},
		{"apostrophe splits", "they don't want", []string{"don", "want"}},
		{"url ends at nbsp", "read http://example.com/a\u00a0government hiding cure", []string{"read", "government", "hiding", "cure"}},
		{"url ends at vertical tab", "read www.example.com/a\vgovernment hiding", []string{"read", "government", "hiding"}},
		{"url ends at em space", "read http://x.io\u2003government", []string{"read", "government"}},
		{"non ascii letters become spaces", "café naïve résumé", []string{"caf", "sum"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Normalize(tc.in)
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("Normalize(%q) = %v, want %v", tc.in, got, tc.want)
			}
		})
	}
}

func TestNormalizeIsFixedPoint(t *testing.T) {
	inputs := []string{
		"BREAKING: Scientists confirm drinking cow urine daily cures cancer diabetes",
		"Reserve Bank of India kept interest rates unchanged at 6.5 percent amid inflation concerns.",
		"ht<b>tpfoo spliced url and ww<i>wbar too",
		"<a href='http://x'>link</a> www http https:// wwwx",
		"MiXeD CaSe\twith\nnewlines and ünïcödé",
		"",
	}
	for _, in := range inputs {
		once := Normalize(in)
		twice := Normalize(Join(once))
		if !reflect.DeepEqual(once, twice) {
			t.Fatalf("not a fixed point for %q: %v vs %v", in, once, twice)
		}
	}
}
