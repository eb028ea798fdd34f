package autofill

import (
	"net/url"
	"strings"

	"github.com/xkilldash9x/visa-autofill/internal/config"
)

// EventProfile lists the events dispatched, in order, after each kind of write.
type EventProfile struct {
	Select []string
	Text   []string
	Choice []string
}

// DefaultEventProfile is tuned for the IRCC portal's front-end framework.
func DefaultEventProfile() EventProfile {
	return EventProfile{
		Select: []string{"input", "change", "blur", "update"},
		Text:   []string{"input", "change"},
		Choice: []string{"change"},
	}
}

// ProfileFor resolves the event profile for the page at pageURL. Lists left
// empty in config keep the default.
func ProfileFor(cfg config.AutofillConfig, pageURL string) EventProfile {
	host := ""
	if u, err := url.Parse(pageURL); err == nil {
		host = u.Hostname()
	}
	ev := cfg.EventsFor(host)

	p := DefaultEventProfile()
	if len(ev.Select) > 0 {
		p.Select = ev.Select
	}
	if len(ev.Text) > 0 {
		p.Text = ev.Text
	}
	if len(ev.Choice) > 0 {
		p.Choice = ev.Choice
	}
	return p
}

func (p EventProfile) String() string {
	return "select=" + strings.Join(p.Select, ",") +
		" text=" + strings.Join(p.Text, ",") +
		" choice=" + strings.Join(p.Choice, ",")
}
