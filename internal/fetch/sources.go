package fetch

import "github.com/abelbrown/trendwatch/internal/model"

// DefaultUserAgent identifies trendwatch to feed servers.
const DefaultUserAgent = "trendwatch/1.0 (+https://github.com/abelbrown/trendwatch)"

// DefaultSources returns a curated list of feed sources. Reliability scores
// are editorial priors in [0,1]; wires and science journals rank highest.
func DefaultSources() []model.NewsSource {
	return []model.NewsSource{
		// Wire services
		{Name: "AP News", URL: "https://feedx.net/rss/ap.xml", Category: model.CategoryGeneral, ReliabilityScore: 0.9, IsActive: true},
		{Name: "BBC World", URL: "https://feeds.bbci.co.uk/news/world/rss.xml", Category: model.CategoryGeneral, ReliabilityScore: 0.85, IsActive: true},
		{Name: "BBC Top", URL: "https://feeds.bbci.co.uk/news/rss.xml", Category: model.CategoryGeneral, ReliabilityScore: 0.85, IsActive: true},

		// Tech
		{Name: "Hacker News", URL: "https://news.ycombinator.com/rss", Category: model.CategoryTechnology, ReliabilityScore: 0.6, IsActive: true},
		{Name: "Lobsters", URL: "https://lobste.rs/rss", Category: model.CategoryTechnology, ReliabilityScore: 0.6, IsActive: true},
		{Name: "Ars Technica", URL: "https://feeds.arstechnica.com/arstechnica/index", Category: model.CategoryTechnology, ReliabilityScore: 0.8, IsActive: true},
		{Name: "The Verge", URL: "https://www.theverge.com/rss/index.xml", Category: model.CategoryTechnology, ReliabilityScore: 0.75, IsActive: true},
		{Name: "Techmeme", URL: "https://www.techmeme.com/feed.xml", Category: model.CategoryTechnology, ReliabilityScore: 0.7, IsActive: true},

		// Science
		{Name: "Nature", URL: "https://www.nature.com/nature.rss", Category: model.CategoryScience, ReliabilityScore: 0.95, IsActive: true},
		{Name: "Quanta Magazine", URL: "https://api.quantamagazine.org/feed/", Category: model.CategoryScience, ReliabilityScore: 0.85, IsActive: true},

		// Business
		{Name: "Bloomberg", URL: "https://feeds.bloomberg.com/markets/news.rss", Category: model.CategoryBusiness, ReliabilityScore: 0.85, IsActive: true},

		// Security
		{Name: "Krebs on Security", URL: "https://krebsonsecurity.com/feed/", Category: model.CategoryTechnology, ReliabilityScore: 0.8, IsActive: true},
	}
}
