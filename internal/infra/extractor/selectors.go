package extractor

// Generic fallback selectors, tried in order when a domain has no recipe or
// its recipe selectors come up empty. Ordered most specific first; the broad
// fallbacks at the end are last resorts.

var genericTitleSelectors = []string{
	// Social platforms, precise matches first.
	`h1[slot="title"]`,
	`h1[data-testid="post-title"]`,
	`h1[role="heading"]`,

	// Standard news and blogs.
	`h1[itemprop="headline"]`,
	`h1.article-title`,
	`article h1`,
	`h1.entry-title`,
	`h1.post-title`,
	`h1.headline`,
	`header h1`,
	`main h1`,
	`h1`,

	// Last resort: page title.
	`title`,
}

var genericContentSelectors = []string{
	// Social platforms, clean-text containers.
	`div[slot="text-body"]`,
	`div[data-click-id="text"]`,
	`div[data-testid="tweetText"]`,

	// Standard semantic markup.
	`div[itemprop="articleBody"]`,
	`div.article-body`,
	`div.post-content`,
	`div.entry-content`,
	`[itemprop="articleBody"]`,
	`article .article-content`,
	`.article-body`,
	`section[itemprop="articleBody"]`,

	// CMS class variations.
	`div[class*="article-body"]`,
	`div[class*="rich-text"]`,
	`div[class*="post-body"]`,
	`div[class*="entry-content"]`,

	// Broad fallbacks.
	`[role="article"]`,
	`main article`,
	`article`,
	`main`,
}

var genericDateSelectors = []string{
	// Structured metadata first; attribute values parse reliably.
	`meta[property="article:published_time"]`,
	`meta[name="publish-date"]`,
	`time[datetime]`,
	`[itemprop="datePublished"]`,
	`time.published`,

	// Class-name conventions.
	`.publish-date`,
	`.article-date`,
	`.date`,
	`.timestamp`,
	`article time`,
	`.published-date`,
	`span[class*="date"]`,
	`span[class*="time"]`,
}
