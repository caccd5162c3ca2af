package mcpserver

// SequenceFormatContract describes the canonical useq document format that
// LLM consumers should follow when creating or updating sequence documents.
const SequenceFormatContract = `# Lapse Sequence Format Contract

Every sequence document stored in lapse MUST follow this structure.

## Structure

A document is JSON (*.useq.json, *.json) or YAML (*.useq.yaml, *.yml) with
the same schema. All top-level keys are optional; an empty document is a
single snap.

` + "```" + `json
{
  "axis_order": "tpgcz",
  "metadata": {
    "pymmcore_widgets": { "save_name": "Experiment A" }
  },
  "channels": [
    { "config": "DAPI", "group": "Channel", "exposure": 10.0 },
    { "config": "FITC", "exposure": 80.0 }
  ],
  "time_plan": { "interval": 5.0, "loops": 60 },
  "z_plan": { "range": 4.0, "step": 0.5 },
  "grid_plan": { "rows": 2, "columns": 3, "overlap": 10.0 },
  "stage_positions": [
    { "name": "Pos0", "x": 100.0, "y": 200.0, "z": 30.0 },
    { "name": "Pos1", "x": -50.0, "y": 10.5 }
  ]
}
` + "```" + `

## Rules

1. **axis_order** uses the canonical axis letters t (time), p (position),
   g (grid), c (channel), z (focus), each at most once.
2. **channels[].config** is required and names a hardware channel preset.
   exposure is milliseconds and must be positive when present.
3. **time_plan** is a fixed-interval loop: interval in seconds (>= 0),
   loops >= 1.
4. **z_plan** is a symmetric range around the current focus: range and step
   in micrometers; step must be positive when range is set.
5. **grid_plan** tiles each position into rows x columns fields; overlap is
   a percentage in [0, 100).
6. **stage_positions** entries carry x and y in micrometers; z is optional
   and only meaningful on rigs with a focus drive. A position may also be
   written as a bare coordinate array: [y, x] or [z, y, x].
7. **metadata.pymmcore_widgets.save_name** carries the display name; other
   metadata keys are preserved as-is.
8. **Encoding** is UTF-8. JSON documents are indented with two spaces and
   end with a trailing newline.

## Importing positions

The import_positions tool accepts a points file instead of hand-written
stage_positions:

- CSV: one point per row, "name,x,y[,z]" or "x,y[,z]", one optional header
  row at the top.
- JSON: an array of position objects or bare coordinate arrays.

Unnamed points are assigned Pt1, Pt2, ... in import order.
`
