package types

// PaymentType identifies which handler drives a payment.
type PaymentType string

const (
	PaymentTypeCard            PaymentType = "card"
	PaymentTypeApplePay        PaymentType = "applePay"
	PaymentTypePayPal          PaymentType = "payPal"
	PaymentTypeGenericRedirect PaymentType = "genericRedirect"
)

// PaymentTypeForCode maps a payment method code from the lookup to a payment
// type. Codes without a dedicated handler are paid through a redirect.
func PaymentTypeForCode(code string) PaymentType {
	switch PaymentType(code) {
	case PaymentTypeCard, PaymentTypeApplePay, PaymentTypePayPal:
		return PaymentType(code)
	default:
		return PaymentTypeGenericRedirect
	}
}

// MethodCode returns the fixed payment method code of the type, or "" for
// redirect methods, whose code comes from the configuration.
func (t PaymentType) MethodCode() string {
	if t == PaymentTypeGenericRedirect {
		return ""
	}
	return string(t)
}

func (t PaymentType) String() string {
	return string(t)
}
