package renderer

// Static scaffold fragments. These are constants on purpose: rendering must be
// byte-for-byte deterministic, so nothing here depends on time, randomness or
// map iteration order.

const baseStyle = `<style>
  body {
    font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif;
    line-height: 1.75;
    color: #1f2937;
    max-width: 900px;
    margin: 0 auto;
    padding: 20px;
    background-color: #ffffff;
  }
  h1 { font-size: 2.25em; margin: 0.5em 0; color: #111827; font-weight: 700; }
  h2 {
    font-size: 1.75em;
    margin: 1.2em 0 0.6em;
    color: #1f2937;
    border-bottom: 2px solid #e5e7eb;
    padding-bottom: 0.3em;
    font-weight: 600;
  }
  p { margin: 1em 0; line-height: 1.8; }
  table {
    width: 100%;
    border-collapse: collapse;
    margin: 1.5em 0;
    border: 1px solid #d1d5db;
  }
  th, td { border: 1px solid #e5e7eb; padding: 12px 16px; text-align: left; }
  th { background-color: #f3f4f6; font-weight: 600; color: #374151; }
  ul, ol { margin: 1em 0; padding-left: 2em; }
  li { margin: 0.6em 0; line-height: 1.7; }
  .cta {
    border: 2px dashed #9ca3af;
    padding: 20px;
    margin: 24px 0;
    background-color: #f9fafb;
    border-radius: 8px;
    text-align: center;
  }
  .image-placeholder {
    background-color: #f3f4f6;
    border: 2px dashed #d1d5db;
    padding: 40px 20px;
    margin: 20px 0;
    text-align: center;
    color: #6b7280;
    border-radius: 4px;
  }
  details {
    margin: 1em 0;
    padding: 16px;
    background-color: #f3f4f6;
    border-radius: 8px;
    border-left: 4px solid #3b82f6;
  }
  summary { font-weight: 600; cursor: pointer; color: #1f2937; padding: 4px 0; }
</style>`

const comparisonTable = `<h2>Key comparison</h2>
<table>
  <thead>
    <tr>
      <th>Item</th>
      <th>Detail</th>
      <th>Notes</th>
    </tr>
  </thead>
  <tbody>
    <tr>
      <td>Search intent</td>
      <td>informational / commercial / transactional</td>
      <td>keyword classification</td>
    </tr>
    <tr>
      <td>Benchmarking</td>
      <td>summary of top-ranking documents</td>
      <td>deduplicate, then improve</td>
    </tr>
    <tr>
      <td>Body structure</td>
      <td>one title, 3-6 sections, one table, one list, three FAQ items</td>
      <td>platform requirements</td>
    </tr>
  </tbody>
</table>
`

const checklist = `<h2>Publishing checklist</h2>
<ul>
  <li>Cover related queries</li>
  <li>Close gaps against top-ranking documents</li>
  <li>3-5 images with alt text, captions, sources</li>
  <li>Place 2-3 calls to action</li>
  <li>Write meta title, description, keywords</li>
  <li>Verify mobile layout</li>
</ul>
`

const faqBlock = `<h2>Frequently asked questions</h2>
<details>
  <summary>1) What is the core idea?</summary>
  <p>A short, plain explanation with minimal jargon.</p>
</details>
<details>
  <summary>2) How do I apply it?</summary>
  <p>Step-by-step instructions, ideally with a worked example.</p>
</details>
<details>
  <summary>3) What are the common mistakes?</summary>
  <p>Name the frequent failure modes and how to resolve them.</p>
</details>
`

const ctaBlock = `<div class="cta" id="CTA_TOP"><strong>[CTA_TOP]</strong> affiliate link or resource (rel="nofollow sponsored")</div>
<div class="cta" id="CTA_MID"><strong>[CTA_MID]</strong> checklist or template download</div>
<div class="cta" id="CTA_BOTTOM"><strong>[CTA_BOTTOM]</strong> consultation / demo request</div>
`
