package ai

const ClassifyPrompt = `
# Task Context
You are a query router for a research paper knowledge base. The knowledge
base holds papers, authors, institutions, and research fields connected by
authorship, citation, affiliation, and field membership edges, plus a
semantic similarity index over paper abstracts.

# Background Data
User question: "%s"

# Detailed Task Description & Rules
- Classify the question into exactly one of three modes:
  * "graph": the question asks about explicit relationships (who wrote X,
    what does X cite, who is affiliated with Y, which papers belong to
    field Z).
  * "similarity": the question asks for papers about a topic, papers
    similar to a described subject, or open-ended thematic exploration.
  * "hybrid": the question combines both (e.g. "papers similar to X by the
    same author", "what do papers about transformers cite").
- When the question names a concrete entity AND asks for a relationship,
  prefer "graph".
- When no concrete entity is named, prefer "similarity".

# Output Formatting
Return JSON with the following structure:
{
  "mode": string,      // one of "graph", "similarity", "hybrid"
  "entities": [string] // entity names mentioned in the question, may be empty
}
Output must be valid JSON only (no commentary, no extra text).
`

const AnswerPrompt = `
# Task Context
You are a research assistant answering questions about a collection of
academic papers. You are given evidence retrieved from a knowledge graph
and a semantic index.

# Background Data
User question: "%s"

Evidence:
%s

# Detailed Task Description & Rules
- Answer the question using ONLY the evidence provided above.
- Cite papers by their title when you refer to them.
- If the evidence does not contain enough information to answer, say so
  plainly instead of speculating.
- Keep the answer concise and factual.

# Immediate Task Description or Request
Answer the user question.
`

const MetadataPrompt = `
# Task Context
You are extracting bibliographic metadata from the text of a research
paper. The text may be a raw extraction from a PDF and can contain page
headers, line-break artifacts, and hyphenation noise.

# Background Data
Document text (may be truncated):
%s

# Detailed Task Description & Rules
- Extract the paper title exactly as written, without trailing punctuation.
- Extract the full author list in the order the paper lists them.
- Extract the abstract if one is present. Do not invent one.
- Extract the DOI and arXiv identifier if present in the text.
- Extract author affiliations when the text states them, pairing each
  affiliation with the author it belongs to.
- Extract the publication date if stated, formatted as YYYY-MM-DD. Use
  YYYY-MM or YYYY when the text is less precise.
- List the research fields the paper belongs to (e.g. "Machine Learning",
  "Computational Biology"), at most three, using established field names.
- Leave any field you cannot find as an empty string or empty list.

# Output Formatting
Return JSON with the following structure:
{
  "title": string,
  "authors": [string],
  "abstract": string,
  "published": string,
  "doi": string,
  "arxiv_id": string,
  "fields": [string],
  "affiliations": [
    {"author": string, "institution": string}
  ]
}
Output must be valid JSON only (no commentary, no extra text).
`

const SummaryPrompt = `
# Task Context
You are writing a short summary of a research paper for a reading list.

# Background Data
Title: %s

Paper text:
%s

# Detailed Task Description & Rules
- Summarize the paper in 3 to 5 sentences.
- State the problem the paper addresses, the approach, and the main result.
- Do not use bullet points or headings.
- Do not repeat the title verbatim as the first sentence.

# Immediate Task Description or Request
Write the summary.
`

const KeywordsPrompt = `
# Task Context
You are extracting keywords from a research paper so it can be indexed
and browsed by topic.

# Background Data
Title: %s

Paper text:
%s

# Detailed Task Description & Rules
- Extract between 3 and 8 keywords or short keyphrases.
- Prefer established terminology over invented phrases.
- Keywords must be lowercase unless they are proper nouns or acronyms.
- Do not include the paper title or author names as keywords.

# Output Formatting
Return JSON with the following structure:
{
  "keywords": [string]
}
Output must be valid JSON only (no commentary, no extra text).
`
