// Package forms maps inbound web-form payloads onto canonical submissions.
// Webflow publishes the same logical field under several spellings depending
// on how the form was built, so each canonical field carries an ordered list
// of accepted aliases.
package forms

// FormType identifies which form a payload came from
type FormType string

const (
	// FormRefillOrder is the prescription refill order form
	FormRefillOrder FormType = "refill_order"
	// FormSignup is the patient registration form
	FormSignup FormType = "signup"
)

// Field describes one canonical field: its name, the label used when the
// document is rendered, the inbound spellings accepted for it (scanned in
// order, first match wins), and whether a submission is rejected without it.
type Field struct {
	Name     string
	Label    string
	Aliases  []string
	Required bool
}

// refillOrderFields is the refill order schema in render order.
var refillOrderFields = []Field{
	{
		Name:     "first_name",
		Label:    "First Name",
		Aliases:  []string{"OR-Name", "OR_Name", "first_name", "firstName", "name"},
		Required: true,
	},
	{
		Name:     "last_name",
		Label:    "Last Name",
		Aliases:  []string{"OR-Last-name", "OR_Last_name", "last_name", "lastName"},
		Required: true,
	},
	{
		Name:     "phone",
		Label:    "Phone Number",
		Aliases:  []string{"OR-Phone-number", "OR_Phone_number", "phone", "phoneNumber", "phone_number"},
		Required: true,
	},
	{
		Name:     "medication",
		Label:    "Medication(s)",
		Aliases:  []string{"OR-Medication", "OR_Medication", "medication", "medications"},
		Required: true,
	},
	{
		Name:    "note",
		Label:   "Notes",
		Aliases: []string{"OR-note", "OR_note", "note", "notes"},
	},
	{
		Name:    "delivery_option",
		Label:   "Delivery Option",
		Aliases: []string{"delivery_option", "deliveryOption", "delivery-option"},
	},
	{
		Name:    "address",
		Label:   "Address",
		Aliases: []string{"address", "address-input", "delivery_address"},
	},
	{
		Name:    "time_slot",
		Label:   "Preferred Time Slot",
		Aliases: []string{"time_slot", "timeSlot", "time-slot", "preferred_time"},
	},
}

// signupFields is the patient registration schema in render order.
// "Form-date-of-brith" is the key the live Webflow form actually sends;
// the corrected spelling is accepted as a lower-priority alias.
var signupFields = []Field{
	{
		Name:     "first_name",
		Label:    "First Name",
		Aliases:  []string{"Form-first-name", "first_name", "firstName", "fname", "first-name"},
		Required: true,
	},
	{
		Name:     "last_name",
		Label:    "Last Name",
		Aliases:  []string{"Form-last-name", "last_name", "lastName", "lname", "last-name"},
		Required: true,
	},
	{
		Name:     "phone",
		Label:    "Phone Number",
		Aliases:  []string{"Form-phone-number", "phone", "phoneNumber", "phone_number"},
		Required: true,
	},
	{
		Name:    "date_of_birth",
		Label:   "Date of Birth",
		Aliases: []string{"Form-date-of-brith", "Form-date-of-birth", "date_of_birth", "dob", "birthdate"},
	},
	{
		Name:    "email",
		Label:   "Email",
		Aliases: []string{"email", "emailAddress", "Form-email"},
	},
	{
		Name:    "address",
		Label:   "Address",
		Aliases: []string{"address-input", "address", "Form-address"},
	},
	{
		Name:    "area",
		Label:   "Area",
		Aliases: []string{"Form-area", "area"},
	},
	{
		Name:    "emergency_contact",
		Label:   "Emergency Contact",
		Aliases: []string{"emergency_contact", "emergencyContact"},
	},
	{
		Name:    "emergency_phone",
		Label:   "Emergency Phone",
		Aliases: []string{"emergency_phone", "emergencyPhone"},
	},
	{
		Name:    "notes",
		Label:   "Notes",
		Aliases: []string{"notes", "note", "Form-notes"},
	},
}

// Fields returns the canonical field schema for a form type in render order.
// The returned slice is shared; callers must not mutate it.
func Fields(ft FormType) []Field {
	switch ft {
	case FormRefillOrder:
		return refillOrderFields
	case FormSignup:
		return signupFields
	default:
		return nil
	}
}

// Valid reports whether ft names a known form type
func (ft FormType) Valid() bool {
	return ft == FormRefillOrder || ft == FormSignup
}
