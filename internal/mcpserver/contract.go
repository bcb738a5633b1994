package mcpserver

// MaskFormatContract describes the JSON mask file format read by the import
// directory and the import endpoint, and written by exports.
const MaskFormatContract = `# masque Mask File Format

A mask file is UTF-8 JSON holding either one mask object or an array of masks.

## Mask

` + "```" + `json
{
  "id": "0c6e…",                 // OPTIONAL on import; a taken or empty id gets a fresh one
  "name": "Translator",          // display name
  "avatar": "1f4da",             // emoji code; "gpt-bot" (or empty) shows the model avatar
  "lang": "en",                  // OPTIONAL
  "hideContext": false,          // hide the context prompts in chats
  "syncGlobalConfig": false,     // the model config was copied from the global one
  "createdAt": 1700000000000,    // milliseconds since the Unix epoch
  "modelConfig": { … },          // OPTIONAL on import; defaults apply when missing
  "context": [ … ]               // ordered prompt context, see below
}
` + "```" + `

## Context entries

` + "```" + `json
{ "id": "…", "role": "system", "content": "You translate to French.", "date": "" }
` + "```" + `

- **role** is one of ` + "`" + `system` + "`" + `, ` + "`" + `user` + "`" + `, ` + "`" + `assistant` + "`" + `.
- **content** is a string, or an array of parts:
  ` + "`" + `{"type":"text","text":"…"}` + "`" + ` and ` + "`" + `{"type":"image_url","image_url":{"url":"…"}}` + "`" + `.
- Image URLs are base64 ` + "`" + `data:` + "`" + ` URIs (png, jpeg, gif, webp, svg; at most 10 MB) or
  public http(s) URLs. Loopback and cloud metadata hosts are rejected.
- **date** is free text; entries added in the UI carry the local time of insertion.

## Model configuration

` + "```" + `json
{
  "model": "gpt-4o-mini",
  "providerName": "OpenAI",
  "temperature": 0.5,            // 0..2
  "top_p": 1,                    // 0..1
  "max_tokens": 4000,            // >= 0
  "presence_penalty": 0,         // -2..2
  "frequency_penalty": 0,        // -2..2
  "sendMemory": true,
  "historyMessageCount": 4,
  "compressMessageLengthThreshold": 1000
}
` + "```" + `

## Rules

1. Builtin presets are read-only; importing one stores an editable copy.
2. Files dropped into the import directory are moved to ` + "`" + `imported/` + "`" + ` on success and
   ` + "`" + `failed/` + "`" + ` otherwise. A file with any invalid mask imports nothing.
3. Editing the model configuration of a mask turns ` + "`" + `syncGlobalConfig` + "`" + ` off.
`
