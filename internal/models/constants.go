package models

const (
	ThinkTag         = `(?s)<think>.*?</think>`
	NotFoundMessage  = "Sorry, I couldn't find an exact answer. Try rephrasing!"
	HighlightPattern = "**%s**"
)

var (
	RerankPromptTemplate = `You judge how well a passage answers a question.
<question>
%s
</question>
<passage>
%s
</passage>
Reply with a single number from 0 to 10, where 10 means the passage directly answers the question. Answer only with the number.
`

	ExtractPromptTemplate = `Answer the question by copying the shortest exact span from the context. Do not rephrase.
<context>
%s
</context>
<question>
%s
</question>
Reply with JSON only: {"answer": "<exact span or empty string>", "confidence": <number between 0 and 1>}
`

	SummaryPromptTemplate = `<document>
%s
</document>
Summarize the document above in %d to %d words. Answer only with the summary and nothing else.
`
)
