package autofill

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/visa-autofill/internal/textnorm"
)

func TestCountEmptyRequired(t *testing.T) {
	tests := []struct {
		name string
		html string
		want int
	}{
		{"required attribute", `<input required>`, 1},
		{"filled required", `<input required value="x">`, 0},
		{"aria-required", `<textarea aria-required="true"></textarea>`, 1},
		{"label mentions required", `<label for="a">Family name (required)</label><input id="a">`, 1},
		{"section mentions required", `<fieldset><legend>Sex (required)</legend><select><option value="">Choose</option><option>F</option></select></fieldset>`, 1},
		{"placeholder select", `<select required><option value="">Choose</option><option>F</option></select>`, 1},
		{"selected select", `<select required><option value="">Choose</option><option selected>F</option></select>`, 0},
		{"radio group counts once", `<input type="radio" name="g" required><input type="radio" name="g" required>`, 1},
		{"radio group satisfied", `<input type="radio" name="g" required><input type="radio" name="g" checked>`, 0},
		{"unchecked required checkbox", `<input type="checkbox" required>`, 1},
		{"hidden required ignored", `<div style="display:none"><input required></div>`, 0},
		{"disabled required ignored", `<input required disabled>`, 0},
		{"submit ignored", `<input type="submit" required>`, 0},
		{"optional empty", `<input>`, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := parseDoc(t, `<html><body>`+tt.html+`</body></html>`)
			assert.Equal(t, tt.want, CountEmptyRequired(doc, textnorm.Default))
		})
	}
}

func TestFindNextControl(t *testing.T) {
	tests := []struct {
		name   string
		html   string
		wantID string
	}{
		{"button", `<button id="n">Next</button>`, "n"},
		{"case and whitespace", `<button id="n">  Save   and
			Continue </button>`, "n"},
		{"submit input value", `<input id="n" type="submit" value="Continue">`, "n"},
		{"link", `<a id="n" href="#">Go to next</a>`, "n"},
		{"role button", `<span id="n" role="button">Proceed</span>`, "n"},
		{"partial text does not count", `<button>Next question please</button>`, ""},
		{"disabled skipped", `<button disabled>Next</button><button id="n">Submit</button>`, "n"},
		{"hidden skipped", `<button hidden>Next</button><a id="n">Next page</a>`, "n"},
		{"first in document order", `<a id="n">Next</a><button>Continue</button>`, "n"},
		{"none", `<button>Back</button>`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := parseDoc(t, `<html><body>`+tt.html+`</body></html>`)
			el := FindNextControl(doc)
			if tt.wantID == "" {
				assert.Nil(t, el)
				return
			}
			require.NotNil(t, el)
			assert.Equal(t, tt.wantID, el.ID())
		})
	}
}
