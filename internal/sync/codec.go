package sync

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/estateops/estatecrm/internal/db"
)

// The metadata block is delimited by literal sentinel markers inside the
// event description. Everything above the block is human-readable text;
// the block itself carries key=value lines that survive a round trip
// through the external calendar.
const (
	metaBlockOpen  = "[REALESTATE_CRM]"
	metaBlockClose = "[/REALESTATE_CRM]"
)

const timeLayout = "02/01/2006 15:04"

var metaLineRe = regexp.MustCompile(`^([a-zA-Z0-9_]+)\s*=\s*(.*)$`)

// EventMeta is the structured metadata carried inside an external event's
// description. Empty fields mean the value was absent on the other side.
type EventMeta struct {
	AgentEmail      string
	PropertyCode    string
	PropertyAddress string
	ContactName     string
	ContactEmail    string
	ContactPhone    string
}

// EncodeDescription builds the event body: a labeled human-readable
// summary followed by the metadata block. The block is always present,
// even when it carries no fields. Absent fields are omitted entirely, on
// both sides.
func EncodeDescription(appt *db.Appointment, agent *db.Agent, property *db.Property, contact *db.Contact) string {
	var lines []string

	if agent != nil && agent.Email != "" {
		lines = append(lines, "Agent: "+agent.Email)
	}

	if appt.Start != nil {
		start := appt.Start.Local()
		if appt.End != nil {
			end := appt.End.Local()
			lines = append(lines, fmt.Sprintf("Time: %s - %s", start.Format(timeLayout), end.Format("15:04")))
		} else {
			lines = append(lines, "Time: "+start.Format(timeLayout))
		}
	}

	if property != nil {
		if property.Code != "" {
			lines = append(lines, "Property: "+property.Code)
		}
		if property.Address != "" || property.City != "" {
			address := property.Address
			if property.City != "" {
				if address != "" {
					address += ", " + property.City
				} else {
					address = property.City
				}
			}
			lines = append(lines, "Address: "+address)
		}
	}

	if contact != nil {
		if contact.FullName != "" {
			lines = append(lines, "Contact: "+contact.FullName)
		}
		if contact.Phone != "" {
			lines = append(lines, "Phone: "+contact.Phone)
		}
		if contact.Email != "" {
			lines = append(lines, "Email: "+contact.Email)
		}
	}

	if appt.Location != "" {
		lines = append(lines, "Location: "+appt.Location)
	}

	if notes := strings.TrimSpace(appt.Notes); notes != "" {
		lines = append(lines, "", "Details:", notes)
	}

	human := strings.TrimSpace(strings.Join(lines, "\n"))
	if human == "" {
		human = "RealEstate CRM"
	}

	var meta []string
	meta = append(meta, metaBlockOpen)
	if agent != nil && agent.Email != "" {
		meta = append(meta, "agent_email="+agent.Email)
	}
	if property != nil {
		if property.Code != "" {
			meta = append(meta, "property_code="+property.Code)
		}
		if property.Address != "" {
			meta = append(meta, "property_address="+property.Address)
		}
	}
	if contact != nil {
		if contact.FullName != "" {
			meta = append(meta, "contact_name="+contact.FullName)
		}
		if contact.Email != "" {
			meta = append(meta, "contact_email="+contact.Email)
		}
		if contact.Phone != "" {
			meta = append(meta, "contact_phone="+contact.Phone)
		}
	}
	meta = append(meta, metaBlockClose)

	return human + "\n\n" + strings.Join(meta, "\n")
}

// DecodeDescription extracts the metadata block from an event description.
// Returns ok=false only when no block delimiters are present (the event is
// not CRM-managed). Within a block, lines without '=' and lines with
// unrecognized keys are ignored: decoding is best-effort and never fails.
func DecodeDescription(description string) (EventMeta, bool) {
	meta := EventMeta{}

	start := strings.Index(description, metaBlockOpen)
	end := strings.Index(description, metaBlockClose)
	if start == -1 || end == -1 || end <= start {
		return meta, false
	}

	block := description[start+len(metaBlockOpen) : end]
	for _, line := range strings.Split(block, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		m := metaLineRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		key := m[1]
		value := strings.TrimSpace(m[2])

		switch key {
		case "agent_email":
			meta.AgentEmail = strings.ToLower(value)
		case "property_code":
			meta.PropertyCode = value
		case "property_address":
			meta.PropertyAddress = value
		case "contact_name":
			meta.ContactName = value
		case "contact_email":
			meta.ContactEmail = strings.ToLower(value)
		case "contact_phone":
			meta.ContactPhone = value
		}
	}

	return meta, true
}
