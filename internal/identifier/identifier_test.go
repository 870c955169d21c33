package identifier

import (
	"math/rand"
	"reflect"
	"testing"
	"testing/quick"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		label string
		want  string
	}{
		{"bracketed tag with accent", "[Anime] Episódio 01", "anime-episodio-01"},
		{"already normalized", "anime-episodio-01", "anime-episodio-01"},
		{"whitespace runs", "Episódio   02\t Final", "episodio-02-final"},
		{"hyphen runs", "Naruto -- Episódio -- 3", "naruto-episodio-3"},
		{"every accent class", "ÁÀÂÃ ÉÈÊ ÍÌÎ ÓÒÔÕ ÚÙÛ Ç", "aaaa-eee-iii-oooo-uuu-c"},
		{"lowercase accents", "ação é ótima", "acao-e-otima"},
		{"all brackets removed", "[A] [B]", "a-b"},
		{"leading and trailing whitespace", "  ep 1  ", "-ep-1-"},
		{"newline", "Ep\n4", "ep-4"},
		{"non breaking space", "Ep\u00a05", "ep-5"},
		{"empty", "", ""},
		{"only brackets", "[]", ""},
		{"tilde on n", "Señor Ñ", "senor-n"},
		{"devanagari vowel signs kept", "पहेली 1", "पहेली-1"},
		{"thai marks kept", "ตอนที่ 1", "ตอนที่-1"},
		{"mark after digit kept", "1\u0301", "1\u0301"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.label))
		})
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	corpus := []string{
		"[Anime] Episódio 01",
		"[Legendado] [HD] Episódio 12 - Final",
		"-\u0301-",
		"İstanbul Ω Å",
		"ΟΔΥΣΣΕΥΣ",
		"ǅungla  --  ẞtraße",
		"a  b",
		"]]][[[",
		"एपिसोड ०१",
		"ตอนที่ 12",
		"Ώ\u0301 o\u0301",
	}
	for _, label := range corpus {
		once := Normalize(label)
		assert.Equal(t, once, Normalize(once), "label %q", label)
	}
}

func TestNormalize_IdempotentProperty(t *testing.T) {
	alphabet := []rune("aAbZ09 -\t[]ÁÀÂÃáàâãÉÈÊéèêÍÌÎíìîÓÒÔÕóòôõÚÙÛúùûÇçñÑüß\u00a0\u0327\u0301.")

	cfg := &quick.Config{
		MaxCount: 2000,
		Values: func(args []reflect.Value, r *rand.Rand) {
			n := r.Intn(24)
			label := make([]rune, n)
			for i := range label {
				label[i] = alphabet[r.Intn(len(alphabet))]
			}
			args[0] = reflect.ValueOf(string(label))
		},
	}

	prop := func(label string) bool {
		once := Normalize(label)
		return Normalize(once) == once
	}

	if err := quick.Check(prop, cfg); err != nil {
		t.Error(err)
	}
}
