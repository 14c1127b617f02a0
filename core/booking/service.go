package booking

import "github.com/shopspring/decimal"

const (
	TypeKeynote      = "keynote"
	TypeMasterclass  = "masterclass"
	TypeMentoring    = "mentoring"
	TypePodcast      = "podcast"
	TypeCoaching     = "one_on_one_coaching"
	TypeConsultation = "consultation"
)

// Service is a bookable offering. Services without a Price are inquiries;
// priced ones are paid in advance through the gateway.
type Service struct {
	Type               string           `json:"type"`
	Label              string           `json:"label"`
	Price              *decimal.Decimal `json:"price,omitempty"`
	RequiresScheduling bool             `json:"requiresScheduling"`
	FieldLabel         string           `json:"fieldLabel,omitempty"`
	Options            []string         `json:"options,omitempty"`
}

func (s Service) RequiresPayment() bool {
	return s.Price != nil
}

func price(v int64) *decimal.Decimal {
	d := decimal.NewFromInt(v)
	return &d
}

// Services is the catalog, in the order the booking page shows it.
var Services = []Service{
	{
		Type:       TypeKeynote,
		Label:      "Keynote Speaking",
		FieldLabel: "Theme and Expectation of Event",
	},
	{
		Type:       TypeMasterclass,
		Label:      "Masterclass",
		FieldLabel: "Aspect of Communication",
	},
	{
		Type:       TypeMentoring,
		Label:      "Mentoring",
		FieldLabel: "Aspect (Personal Branding, Public Speaking, etc)",
	},
	{
		Type:       TypePodcast,
		Label:      "Podcast Appearance",
		FieldLabel: "Subject to be Discussed and Expectations",
	},
	{
		Type:    TypeCoaching,
		Label:   "One-on-One Coaching",
		Price:   price(1000),
		Options: []string{"Voice for Engagement", "Articulacy", "Commanding Presence", "Other"},
	},
	{
		Type:               TypeConsultation,
		Label:              "Consultation (30 mins)",
		Price:              price(99),
		RequiresScheduling: true,
	},
}

func Lookup(typ string) (Service, bool) {
	for _, s := range Services {
		if s.Type == typ {
			return s, true
		}
	}
	return Service{}, false
}
