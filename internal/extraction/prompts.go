package extraction

const schemaSystemPrompt = `You design JSON extraction schemas for logistics documents.
Return only a valid JSON object mapping snake_case field names to a type, either "string" or "number".`

const schemaUserPrompt = `### DOCUMENT TEXT
%s
---
### TASK
List every extractable operational field in the text (parties, references, dates, locations, equipment, rates, terms).
Return ONLY the raw JSON object.`

const extractSystemPrompt = `You extract structured logistics data strictly from the provided document text.
Return a single JSON object. Use null for any field the text does not state.`

const extractUserPrompt = `### TARGET SCHEMA
%s

### TASK
Extract values for the above schema from the text below.
Numbers must be plain JSON numbers without currency symbols or separators.

### DOCUMENT TEXT
%s`
