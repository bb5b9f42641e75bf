package lookup

import "github.com/palantir/contact-enricher/internal/contact"

func seedRecords() map[string]contact.EnrichedProfile {
	return map[string]contact.EnrichedProfile{
		"linkedin.com/in/janedoe": {
			Company:         "Innovate Inc.",
			Role:            "Senior Software Engineer",
			Website:         "https://innovate.com",
			Email:           "jane.doe@innovate.com",
			EmailConfidence: 95,
			Phone:           "+1-555-0101",
			Industry:        "Technology",
			LinkedInURL:     "https://www.linkedin.com/in/janedoe",
			Sources:         []string{SourcePerson},
		},
		"john.smith@acme.com": {
			Company:         "Acme Corp",
			Role:            "Product Manager",
			Website:         "https://acme.com",
			Email:           "john.smith@acme.com",
			EmailConfidence: 88,
			Phone:           "+1-555-0102",
			Industry:        "Manufacturing",
			LinkedInURL:     "https://www.linkedin.com/in/johnsmith",
			Sources:         []string{SourcePerson},
		},
		// Known person without a discoverable email.
		"sara.jones@techsolutions.com": {
			Company:     "Tech Solutions",
			Role:        "Marketing Director",
			Website:     "https://techsolutions.com",
			Phone:       "+1-555-0103",
			Industry:    "IT Services",
			LinkedInURL: "https://www.linkedin.com/in/sarajones",
			Sources:     []string{SourcePerson},
		},
	}
}
