package linkedin

// LinkedIn ships several generations of profile markup depending on the
// viewer, A/B bucket and login state. Each field carries an ordered
// fallback table, newest layout first; extraction takes the first
// selector that yields content.
var (
	nameSelectors = []string{
		"h1.text-heading-xlarge",
		"h1.inline.t-24",
		"h1.top-card-layout__title",
		"h1.pv-top-card-section__name",
	}

	headlineSelectors = []string{
		"div.text-body-medium",
		"h2.top-card-layout__headline",
		"div.pv-top-card-section__headline",
		"div.text-body-large",
	}

	aboutSelectors = []string{
		"div.display-flex.ph5.pv3 > div.inline-show-more-text",
		"div.pv-about__summary-text",
		"section.summary div.pv-shared-text-with-see-more",
		"section.pv-about-section div.inline-show-more-text",
	}

	experienceSelectors = []string{
		"section#experience-section li",
		"section.experience-section li",
		"section.pv-profile-section.experience-section ul.pv-profile-section__section-info li",
		"div#experience ul li.artdeco-list__item",
		"main section:nth-child(5) ul li",
	}
)
