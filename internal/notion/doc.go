// Package notion turns the block graph embedded in a published Notion page
// into Markdown.
//
// The payload is treated as an untyped JSON tree. Blocks are decoded into a
// flat BlockTable keyed by block id and children are resolved by id lookups,
// so overlapping or self-referential sub-graphs never produce owning cycles.
//
//   - RichText renders inline text runs and their format markers
//   - Renderer dispatches on BlockType and renders one block (recursively)
//   - Extractor locates the root page and assembles a PageContent
//   - PageRegistry records every child page seen during a crawl
package notion
