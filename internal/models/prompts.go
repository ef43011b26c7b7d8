package models

// GroundingSentinel is the exact phrase the generator is instructed to emit
// when the supplied context does not contain the answer. The retriever
// matches it to mark a response as not grounded.
const GroundingSentinel = "I don't know based on the provided document."

const (
	// AnswerPromptTemplate constrains the model to the retrieved context.
	// Args: sentinel, context, question.
	AnswerPromptTemplate = `You are a helpful AI assistant. Answer the user's question using ONLY the provided context from the document.

IMPORTANT RULES:
1. Answer strictly using the provided context
2. If the answer is not present in the context, say "%s"
3. Be concise and direct
4. Quote relevant parts when appropriate

CONTEXT FROM DOCUMENT:
%s

USER QUESTION: %s

ANSWER:`

	// MultiDocAnswerPromptTemplate is used when context spans several
	// documents. Args: document ids, sentinel, context, question.
	MultiDocAnswerPromptTemplate = `You are a helpful AI assistant. Answer the user's question using the provided context from MULTIPLE documents.

IMPORTANT RULES:
1. Synthesize information from all relevant sources
2. Indicate which document(s) the information comes from when helpful
3. Compare and contrast information if there are differences
4. If the answer is not present in any document, say "%s"
5. Be concise and direct

DOCUMENTS ANALYZED: %s

CONTEXT FROM DOCUMENTS:
%s

USER QUESTION: %s

ANSWER:`

	// AutoTagPromptTemplate extracts keyword labels from document content.
	// Args: max tags, content.
	AutoTagPromptTemplate = `Analyze the following document and extract the most relevant tags/keywords that describe its content.

INSTRUCTIONS:
1. Extract %d tags maximum
2. Tags should be single words or short phrases (2-3 words max)
3. Focus on main topics, themes, and key concepts
4. Return tags as a comma-separated list
5. Tags should be lowercase

DOCUMENT CONTENT:
%s

TAGS (comma-separated):`
)

// DocKindTemplates maps each generate-document kind to its prompt.
// Every template takes the document content as its single argument.
var DocKindTemplates = map[DocKind]string{
	DocKindSummary: `Create an executive summary of the following document.

Include:
- Main purpose/topic
- Key findings or points
- Important conclusions
- Recommended actions (if applicable)

DOCUMENT:
%s

EXECUTIVE SUMMARY:`,

	DocKindReport: `Create a detailed report based on the following document.

Structure:
1. Introduction/Overview
2. Main Content Analysis
3. Key Findings
4. Conclusions
5. Recommendations (if applicable)

DOCUMENT:
%s

DETAILED REPORT:`,

	DocKindOutline: `Create a structured outline of the following document.

Format:
- Use hierarchical numbering (1., 1.1, 1.1.1, etc.)
- Include main sections and subsections
- Keep descriptions brief

DOCUMENT:
%s

DOCUMENT OUTLINE:`,

	DocKindKeyPoints: `Extract and list the key points from the following document.

Format:
- Use bullet points
- Include the most important facts, findings, and conclusions
- Aim for 10-15 key points maximum
- Order by importance

DOCUMENT:
%s

KEY POINTS:`,
}
