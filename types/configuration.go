package types

const lookupResultName = "lookup"

// StoredInstrumentEnabled is the only instrument status exposed to the host.
const StoredInstrumentEnabled = "enabled"

// StoredInstrument is the read-only projection of a saved payment method.
type StoredInstrument struct {
	ID                string      `json:"id"`
	Email             string      `json:"email,omitempty"`
	Type              PaymentType `json:"type"`
	PaymentMethodCode string      `json:"paymentMethodCode"`
}

// PaymentOptions returns the payment composition options of the lookup result,
// or nil if the execution carries no lookup.
func (c *Configuration) PaymentOptions() []PaymentOption {
	if c == nil || c.Execution == nil {
		return nil
	}
	for i := range c.Execution.InitialResults {
		body := c.Execution.InitialResults[i].Body
		if body.Name == lookupResultName {
			return body.Data.PaymentCompositionOptions
		}
	}
	return nil
}

// PaymentOption returns the option handled by the given payment type. Card,
// Apple Pay and PayPal must be offered exactly once; an ambiguous lookup is
// reported as not found. Redirect methods share a type, so the first one wins
// and callers pick a specific one with PaymentOptionByCode.
func (c *Configuration) PaymentOption(t PaymentType) (*PaymentOption, bool) {
	options := c.PaymentOptions()
	var found *PaymentOption
	for i := range options {
		if options[i].Type() != t {
			continue
		}
		if t == PaymentTypeGenericRedirect {
			return &options[i], true
		}
		if found != nil {
			return nil, false
		}
		found = &options[i]
	}
	return found, found != nil
}

// PaymentOptionByCode returns the option with the given payment method code.
func (c *Configuration) PaymentOptionByCode(code string) (*PaymentOption, bool) {
	options := c.PaymentOptions()
	for i := range options {
		if options[i].PaymentMethodCode == code {
			return &options[i], true
		}
	}
	return nil, false
}

// AuthorizeLink returns the link payments are authorized against.
func (c *Configuration) AuthorizeLink() (*Link, error) {
	if c == nil || c.Execution == nil || c.Execution.Links.Authorize == nil || c.Execution.Links.Authorize.Href == "" {
		return nil, NewMissingData("authorize link")
	}
	return c.Execution.Links.Authorize, nil
}

// StoredInstruments returns enabled instruments across all options. When types
// are given only instruments of those types are returned.
func (c *Configuration) StoredInstruments(types ...PaymentType) []StoredInstrument {
	var out []StoredInstrument
	for _, option := range c.PaymentOptions() {
		for _, instrument := range option.PaymentInstruments {
			if instrument.Status != StoredInstrumentEnabled {
				continue
			}
			code := instrument.PaymentMethod
			if code == "" {
				code = option.PaymentMethodCode
			}
			stored := StoredInstrument{
				ID:                instrument.ID,
				Type:              PaymentTypeForCode(code),
				PaymentMethodCode: code,
			}
			if email, ok := instrument.Data["email"].(string); ok {
				stored.Email = email
			}
			if len(types) > 0 && !containsType(types, stored.Type) {
				continue
			}
			out = append(out, stored)
		}
	}
	return out
}

func containsType(types []PaymentType, t PaymentType) bool {
	for _, candidate := range types {
		if candidate == t {
			return true
		}
	}
	return false
}
