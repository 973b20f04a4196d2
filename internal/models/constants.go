package models

const (
	MetaSource      = "source"
	MetaChunkIndex  = "chunk_index"
	MetaIngestionID = "ingestion_id"

	ContextSeparator = "\n---\n"
	DefaultTopK      = 4
)

var (
	ChunkSeparators = []string{"\n\n", "\n", ". ", " ", ""}

	AnswerPromptTemplate = `You are a helpful AI assistant that provides accurate information based on the given context.

Context:
{{.context}}

Question:
{{.question}}

Please provide a detailed answer based only on the provided context. If the context doesn't contain
relevant information to answer the question, state that you don't have enough information.
`
)
