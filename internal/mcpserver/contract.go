package mcpserver

// TemplateFormatContract describes the template document format that LLM
// consumers should follow when creating templates.
const TemplateFormatContract = `# Menuboard Template Format Contract

A template is one JSON document describing a menu board canvas and the
elements placed on it.

## Structure

` + "```" + `json
{
  "name": "Lunch Specials",
  "canvasSize": { "width": 1920, "height": 1080 },
  "backgroundColor": "#1e293b",
  "backgroundImage": "linear-gradient(180deg, #1e293b, #0f172a)",
  "elements": [
    {
      "id": "b7c1d9e2-...",
      "type": "text",
      "x": 100, "y": 80, "width": 600, "height": 90,
      "rotation": 0,
      "content": "Today's Menu",
      "fontSize": 64, "fontWeight": "bold", "fontFamily": "sans-serif",
      "color": "#ffffff", "backgroundColor": "transparent",
      "borderRadius": 0, "opacity": 1, "shadow": "",
      "textAlign": "left",
      "zIndex": 1
    }
  ]
}
` + "```" + `

## Rules

1. **type** is one of ` + "`text`, `image`, `shape`, `price`, `promotion`" + `.
2. **id** values are unique within the document. Use UUIDs.
3. **zIndex** values are exactly 1..N (N = number of elements). Higher paints on top.
4. **width** and **height** are at least 20. **opacity** is between 0 and 1
   (omit it for fully opaque).
5. **canvasSize** is in pixels. Presets: 1920x1080 (landscape-hd),
   1080x1920 (portrait-hd), 3840x2160 (landscape-4k), 1080x1080 (square).
6. Colors are CSS colors: ` + "`#rrggbb`, `rgb()`, `rgba()`" + ` or a named color.
7. **shadow** uses CSS box-shadow syntax, e.g. ` + "`0 4px 12px rgba(0,0,0,0.4)`" + `.
8. **shape** elements may set ` + "`stroke`" + ` and ` + "`strokeWidth`" + `.

## Images

- Upload images via the ` + "`upload_asset`" + ` tool. It returns an ` + "`imageUrl`" + ` to put on an
  element of type ` + "`image`" + ` (or in ` + "`backgroundImage`" + `).
- Supported formats: png, jpg, jpeg, gif, webp.
- Remote http(s) URLs also work but must stay reachable for exports.

## HTML import

` + "`import_html`" + ` converts a page into this format. The first element sized like a
screen (for example a ` + "`div`" + ` of 1920x1080) becomes the canvas; otherwise 1920x1080 is used.
Absolutely positioned, flex and grid layouts are supported.
`
