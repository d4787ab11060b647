package config

const (
	defaultStorageProvider = "sqlite"

	defaultVectorProvider   = "sqlite"
	defaultVectorCollection = "ecofes_docs"

	defaultEmbeddingProvider   = "local"
	defaultEmbeddingTarget     = "https://gigachat.devices.sberbank.ru/api/v1"
	defaultEmbeddingModel      = "Embeddings"
	defaultEmbeddingDimensions = 384
	defaultMaxInputChars       = 4000
	defaultTimeoutSeconds      = 30
	defaultTokenURL            = "https://ngw.devices.sberbank.ru:9443/api/v2/oauth"
	defaultTokenScope          = "GIGACHAT_API_PERS"

	defaultCorpusRoot      = "docs"
	defaultChunkSize       = 300
	defaultMinContentChars = 10
	defaultMaxChunkChars   = 4000
	defaultBatchSize       = 1

	defaultTopK          = 3
	defaultContextChunks = 2

	defaultGenerationProvider = "openrouter"
	defaultGenerationTarget   = "https://openrouter.ai/api/v1"
	defaultGenerationModel    = "mistralai/mistral-7b-instruct"
	defaultTemperature        = 0.5
	defaultMaxTokens          = 500
	defaultMaxAnswerChars     = 1500
	defaultReferer            = "https://ecofes.ru"
	defaultTitle              = "Ecofes Bot"

	defaultAPIListen       = ":8081"
	defaultClientAPITarget = "http://localhost:8081"

	defaultEventsProvider = "nop"
	defaultEventsTopic    = "lubebot.events"

	defaultContactPhone = "+7 (800) 700-80-39"
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		Storage: StorageConfig{
			Provider: defaultStorageProvider,
		},
		VectorStore: VectorStoreConfig{
			Provider:   defaultVectorProvider,
			Collection: defaultVectorCollection,
		},
		Embedding: EmbeddingConfig{
			Provider:       defaultEmbeddingProvider,
			Target:         defaultEmbeddingTarget,
			Model:          defaultEmbeddingModel,
			Dimensions:     defaultEmbeddingDimensions,
			MaxInputChars:  defaultMaxInputChars,
			TimeoutSeconds: defaultTimeoutSeconds,
			Auth: EmbeddingAuthConfig{
				TokenURL: defaultTokenURL,
				Scope:    defaultTokenScope,
			},
		},
		Corpus: CorpusConfig{
			Root:            defaultCorpusRoot,
			ChunkSize:       defaultChunkSize,
			MinContentChars: defaultMinContentChars,
			MaxChunkChars:   defaultMaxChunkChars,
			BatchSize:       defaultBatchSize,
		},
		Retrieval: RetrievalConfig{
			TopK:          defaultTopK,
			ContextChunks: defaultContextChunks,
		},
		Generation: GenerationConfig{
			Provider:       defaultGenerationProvider,
			Target:         defaultGenerationTarget,
			Model:          defaultGenerationModel,
			Temperature:    defaultTemperature,
			MaxTokens:      defaultMaxTokens,
			MaxAnswerChars: defaultMaxAnswerChars,
			TimeoutSeconds: defaultTimeoutSeconds,
			Referer:        defaultReferer,
			Title:          defaultTitle,
		},
		API: APIConfig{
			Listen: defaultAPIListen,
		},
		Client: ClientConfig{
			APITarget: defaultClientAPITarget,
		},
		Events: EventsConfig{
			Provider: defaultEventsProvider,
			Topic:    defaultEventsTopic,
		},
		Contact: ContactConfig{
			Phone: defaultContactPhone,
		},
	}
}
