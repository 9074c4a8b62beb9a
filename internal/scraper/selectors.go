package scraper

import (
	"fmt"
	"strings"
)

// Selectors holds the CSS selectors used against product and listing pages.
// Description is tried in order; the first match wins.
type Selectors struct {
	Title        string   `mapstructure:"title"`
	Price        string   `mapstructure:"price"`
	Rating       string   `mapstructure:"rating"`
	Reviews      string   `mapstructure:"reviews"`
	Image        string   `mapstructure:"image"`
	Description  []string `mapstructure:"description"`
	Bought       string   `mapstructure:"bought"`
	ProductLinks string   `mapstructure:"product_links"`
	NextPage     string   `mapstructure:"next_page"`
}

// DefaultSelectors returns the selectors for Amazon search and detail pages.
func DefaultSelectors() Selectors {
	return Selectors{
		Title:        "#productTitle",
		Price:        "span.a-offscreen",
		Rating:       "#acrPopover",
		Reviews:      "#acrCustomerReviewText",
		Image:        "#landingImage",
		Description:  []string{"#feature-bullets", "#productDescription"},
		Bought:       "#social-proofing-faceout-title-tk_bought",
		ProductLinks: "[data-asin] h2 a",
		NextPage:     "a.s-pagination-next",
	}
}

// WithDefaults fills any empty selector from DefaultSelectors.
func (s Selectors) WithDefaults() Selectors {
	def := DefaultSelectors()
	fill := func(dst *string, fallback string) {
		if strings.TrimSpace(*dst) == "" {
			*dst = fallback
		}
	}
	fill(&s.Title, def.Title)
	fill(&s.Price, def.Price)
	fill(&s.Rating, def.Rating)
	fill(&s.Reviews, def.Reviews)
	fill(&s.Image, def.Image)
	fill(&s.Bought, def.Bought)
	fill(&s.ProductLinks, def.ProductLinks)
	fill(&s.NextPage, def.NextPage)
	if len(s.Description) == 0 {
		s.Description = def.Description
	}
	return s
}

// Validate rejects selector sets the listing crawler cannot run with.
func (s Selectors) Validate() error {
	if strings.TrimSpace(s.ProductLinks) == "" {
		return fmt.Errorf("selectors.product_links must be set")
	}
	if strings.TrimSpace(s.NextPage) == "" {
		return fmt.Errorf("selectors.next_page must be set")
	}
	return nil
}
