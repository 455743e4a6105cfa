package domain

import "fmt"

// RecipientKind tags a Recipient.
type RecipientKind int

const (
	RecipientDriver RecipientKind = iota + 1
	RecipientCustomer
	RecipientCompanyManagers
)

// Recipient is one fan-out target: a driver, a customer, or every manager
// of a company. ID is a user id, or the company id for RecipientCompanyManagers.
type Recipient struct {
	Kind RecipientKind
	ID   string
}

// DriverRecipient addresses a single driver.
func DriverRecipient(id string) Recipient { return Recipient{Kind: RecipientDriver, ID: id} }

// CustomerRecipient addresses a single customer.
func CustomerRecipient(id string) Recipient { return Recipient{Kind: RecipientCustomer, ID: id} }

// CompanyManagersRecipient addresses the managers of a company.
func CompanyManagersRecipient(companyID string) Recipient {
	return Recipient{Kind: RecipientCompanyManagers, ID: companyID}
}

// Category maps the recipient to its notification category.
func (r Recipient) Category() NotificationCategory {
	switch r.Kind {
	case RecipientDriver:
		return CategoryDriver
	case RecipientCustomer:
		return CategoryCustomer
	default:
		return CategoryCompany
	}
}

// RecipientsFor lists who must hear about e.
func RecipientsFor(e TripEvent) []Recipient {
	t := e.Trip
	if t == nil {
		return nil
	}
	var out []Recipient
	addDriver := func(id string) {
		if id != "" {
			out = append(out, DriverRecipient(id))
		}
	}
	addCustomer := func() {
		if t.CustomerID != "" {
			out = append(out, CustomerRecipient(t.CustomerID))
		}
	}
	addCompany := func() {
		if t.CompanyID != "" {
			out = append(out, CompanyManagersRecipient(t.CompanyID))
		}
	}

	switch e.Kind {
	case TripEventCreated:
		addDriver(t.Driver())
		addCustomer()
		addCompany()
	case TripEventDriverAssigned:
		addDriver(t.Driver())
		if e.PreviousDriverID != "" && e.PreviousDriverID != t.Driver() {
			addDriver(e.PreviousDriverID)
		}
	case TripEventStatusChanged:
		addDriver(t.Driver())
		if t.Status == TripStatusDeclined {
			addDriver(e.PreviousDriverID)
		}
		addCompany()
		switch t.Status {
		case TripStatusInProgress, TripStatusDelivered, TripStatusCancelled:
			addCustomer()
		}
	case TripEventDeliveryConfirmed:
		addDriver(t.Driver())
		addCompany()
	}
	return out
}

// MessageFor renders the notification r receives for e.
func MessageFor(e TripEvent, r Recipient) NotificationMessage {
	t := e.Trip
	msg := NotificationMessage{TripID: t.ID, Category: r.Category()}

	switch e.Kind {
	case TripEventCreated:
		msg.Type = NotificationTripCreated
		switch r.Kind {
		case RecipientDriver:
			if t.Status == TripStatusAssigned {
				msg.Type = NotificationTripAssigned
				msg.Message = fmt.Sprintf("You have been assigned to trip %s", t.ID)
			} else {
				msg.Message = fmt.Sprintf("You have been offered trip %s", t.ID)
			}
		case RecipientCustomer:
			msg.Message = fmt.Sprintf("Your delivery %s has been dispatched", t.ID)
		default:
			msg.Message = fmt.Sprintf("New trip %s was created", t.ID)
		}
	case TripEventDriverAssigned:
		switch {
		case r.ID == e.PreviousDriverID && r.ID != t.Driver():
			msg.Type = NotificationTripUnassigned
			msg.Message = fmt.Sprintf("Trip %s has been reassigned to another driver", t.ID)
		case e.PreviousDriverID != "" && e.PreviousDriverID != t.Driver():
			msg.Type = NotificationTripReassigned
			msg.Message = fmt.Sprintf("Trip %s has been reassigned to you", t.ID)
		default:
			msg.Type = NotificationTripAssigned
			msg.Message = fmt.Sprintf("You have been assigned to trip %s", t.ID)
		}
	case TripEventStatusChanged:
		msg.Type = NotificationTripStatusChanged
		if t.Status == TripStatusDeclined && r.Kind == RecipientCompanyManagers {
			msg.Message = fmt.Sprintf("Trip %s was declined by the driver", t.ID)
		} else {
			msg.Message = fmt.Sprintf("Trip %s is now %s", t.ID, t.Status)
		}
	case TripEventDeliveryConfirmed:
		msg.Type = NotificationTripConfirmed
		msg.Message = fmt.Sprintf("Delivery of trip %s was confirmed by the customer", t.ID)
	}
	return msg
}
