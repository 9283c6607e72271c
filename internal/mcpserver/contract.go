package mcpserver

// DocumentFormat describes the devotion payload layout served by the content
// root, for LLM consumers reading raw documents.
const DocumentFormat = `# Morning Light Document Format

Content lives under a single root (HTTP base URL or local directory).

## Manifest

` + "`" + `manifest.json` + "`" + ` is a JSON array, one entry per published day:

` + "```" + `json
[
  {"date": "2024-03-05", "EN": {"title": "Grace"}, "TA": {"title": "Kirubai"}}
]
` + "```" + `

Dates are ISO calendar days. Titles exist for both languages.

## Documents

Each (date, language) pair is stored as ` + "`" + `DD-MM-YYYY-LANG.json` + "`" + `,
for example ` + "`" + `05-03-2024-EN.json` + "`" + `. LANG is ` + "`" + `EN` + "`" + ` or ` + "`" + `TA` + "`" + `.

A document is a JSON array of tagged blocks:

| type        | fields                                                                 |
|-------------|------------------------------------------------------------------------|
| meta        | title, subtitle, language, date, youtubeUrl?, pdfUrl?, imageUrl?, audioUrl? |
| verse       | reference, text                                                        |
| paragraph   | content                                                                |
| lesson      | title?, content                                                        |
| prayer      | title?, content                                                        |
| Subheading  | title                                                                  |

## Rules

1. Exactly one ` + "`" + `meta` + "`" + ` block, and it comes first.
2. Unknown block types are skipped by readers.
3. Inline emphasis uses ` + "`" + `**bold**` + "`" + ` and ` + "`" + `*italic*` + "`" + `.
4. Paragraph breaks inside ` + "`" + `content` + "`" + ` are single newlines.
5. A document that fails these rules is reported as not available for its date.
`
