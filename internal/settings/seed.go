package settings

import (
	"context"

	"github.com/top3hunter/recommend-service/internal/domain"
	"github.com/top3hunter/recommend-service/internal/repository"
	"github.com/top3hunter/recommend-service/pkg/log"
)

// Well-known configuration keys.
const (
	KeySerperAPIKey       = "SERPER_API_KEY"
	KeyLLMAPIKey          = "LLM_API_KEY"
	KeyLLMProvider        = "LLM_PROVIDER"
	KeyLLMModelName       = "LLM_MODEL_NAME"
	KeySearchTimeout      = "SEARCH_TIMEOUT"
	KeyLLMTimeout         = "LLM_TIMEOUT"
	KeyMaxSearchResults   = "MAX_SEARCH_RESULTS"
	KeyTopProductsCount   = "TOP_PRODUCTS_COUNT"
	KeySystemPrompt       = "LLM_SYSTEM_PROMPT"
	KeyUserPromptTemplate = "LLM_USER_PROMPT_TEMPLATE"
	KeySiteTitle          = "SITE_TITLE"
	KeySiteDescription    = "SITE_DESCRIPTION"
	KeyContactEmail       = "CONTACT_EMAIL"
	KeyEnableRatings      = "ENABLE_RATINGS"
	KeyEnablePrices       = "ENABLE_PRICES"
	KeyThemeColor         = "THEME_COLOR"
	KeyCacheTTLQuery      = "CACHE_TTL_QUERY"
	KeyCacheTTLConfig     = "CACHE_TTL_CONFIG"
	KeyEnableCache        = "ENABLE_CACHE"
)

// Placeholder values shipped with the seed data. A required key still holding
// its placeholder counts as unconfigured.
const (
	placeholderSerperKey = "your-serper-api-key-here"
	placeholderLLMKey    = "your-llm-api-key-here"
)

// RequiredKeys must hold real values before the pipeline can run.
var RequiredKeys = []string{
	KeySerperAPIKey,
	KeyLLMAPIKey,
	KeyLLMProvider,
	KeyLLMModelName,
	KeySystemPrompt,
	KeyUserPromptTemplate,
}

const defaultSystemPrompt = `You are a world-class product analyst and market researcher. Your task is to analyze the given live web search results and determine the best product recommendations for a specific item.

Based on the search results below (page titles, snippets, and links), select the Top 3 recommendations for the product the user is looking for.

Evaluation criteria:
1. Product quality and performance, based on professional reviews and user feedback
2. Value for money
3. Brand reputation and after-sales service
4. User ratings and satisfaction
5. Innovation and technical advantages

For each recommended product provide:
- The full, accurate product name
- A detailed reason for the recommendation
- 3-4 key advantages (pros)
- 1-2 potential drawbacks or caveats (cons)
- The kind of user the product suits best
- An authoritative source link taken from the search results (a professional review or major retailer)

Recommendations must be objective and grounded in the supplied search results only.`

const defaultUserPromptTemplate = `Based on the following search results, select the Top 3 recommendations for the product "[USER_KEYWORD]":

Search results:
[SEARCH_RESULTS]

Analyze the results and recommend the three best products. Make sure every source link comes from the search results above.`

// seedConfigurations returns the default configuration rows.
func seedConfigurations() []domain.Configuration {
	return []domain.Configuration{
		// API group
		{Key: KeySerperAPIKey, Value: placeholderSerperKey, Group: domain.GroupAPI},
		{Key: KeyLLMAPIKey, Value: placeholderLLMKey, Group: domain.GroupAPI},
		{Key: KeyLLMProvider, Value: "anthropic", Group: domain.GroupAPI},
		{Key: KeyLLMModelName, Value: "claude-3-haiku-20240307", Group: domain.GroupAPI},
		{Key: KeySearchTimeout, Value: "30", Group: domain.GroupAPI},
		{Key: KeyLLMTimeout, Value: "60", Group: domain.GroupAPI},
		{Key: KeyMaxSearchResults, Value: "10", Group: domain.GroupAPI},
		{Key: KeyTopProductsCount, Value: "3", Group: domain.GroupAPI},

		// Prompt group
		{Key: KeySystemPrompt, Value: defaultSystemPrompt, Group: domain.GroupPrompt},
		{Key: KeyUserPromptTemplate, Value: defaultUserPromptTemplate, Group: domain.GroupPrompt},

		// UI group
		{Key: KeySiteTitle, Value: "Top3-Hunter", Group: domain.GroupUI},
		{Key: KeySiteDescription, Value: "AI-powered product recommendations from live web search", Group: domain.GroupUI},
		{Key: KeyContactEmail, Value: "support@top3hunter.com", Group: domain.GroupUI},
		{Key: KeyEnableRatings, Value: "true", Group: domain.GroupUI},
		{Key: KeyEnablePrices, Value: "true", Group: domain.GroupUI},
		{Key: KeyThemeColor, Value: "#3b82f6", Group: domain.GroupUI},

		// Cache group
		{Key: KeyCacheTTLQuery, Value: "21600", Group: domain.GroupCache},
		{Key: KeyCacheTTLConfig, Value: "60", Group: domain.GroupCache},
		{Key: KeyEnableCache, Value: "true", Group: domain.GroupCache},
	}
}

// Seed writes the default configuration rows when the table is empty.
func Seed(ctx context.Context, repo repository.ConfigurationRepository) error {
	count, err := repo.Count(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	l := log.Ctx(ctx)
	seeds := seedConfigurations()
	for i := range seeds {
		if err := repo.Upsert(ctx, &seeds[i]); err != nil {
			return err
		}
	}
	l.Info().Int("count", len(seeds)).Msg("seeded default configurations")
	return nil
}

func isPlaceholder(value string) bool {
	return value == "" || value == placeholderSerperKey || value == placeholderLLMKey
}

// IsSecretKey reports whether a configuration key holds a credential that
// must not be echoed back on admin reads.
func IsSecretKey(key string) bool {
	return key == KeySerperAPIKey || key == KeyLLMAPIKey
}
