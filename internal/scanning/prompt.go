package scanning

// transcriptionPrompt is shared by the LLM backends.
const transcriptionPrompt = `You are transcribing a photographed or scanned receipt. Read every line of printed text in the image from top to bottom and copy it exactly as printed.

Rules for the transcription:
- Keep one receipt line per output line, in the order printed.
- Keep item names and prices on the same line when they are printed on the same line.
- Copy numbers, currency symbols, dates and times exactly. Do not reformat or correct them.
- Do not summarise, translate or add text that is not on the receipt.

Also report:
- "date": the purchase or transaction date in YYYY-MM-DD format, or null if you cannot read one.
- "confidence": how sure you are of your reading, from 0 to 100, overall and for the store name, date and total.

Return ONLY valid JSON in this exact format:
{
  "text": "STORE NAME\n01/15/2024\nMilk $3.50\nTotal $3.50",
  "date": "YYYY-MM-DD",
  "confidence": {"overall": 0, "store_name": 0, "date": 0, "total": 0}
}

Do not include any text before or after the JSON and do not use markdown code blocks.`

// transcriptionSystemPrompt primes chat models that take a system message.
const transcriptionSystemPrompt = "You are an expert at reading receipts and invoices. You copy all printed text from images accurately and never invent text."
