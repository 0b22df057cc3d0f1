package help

// QuickstartYAML is printed by the quickstart command.
const QuickstartYAML = `# placeshelf Quick Start

inputs:
  - "Full links: https://www.google.com/maps/place/..."
  - "Regional links: google.co.uk/maps, google.de/maps, ..."
  - "Short links: maps.app.goo.gl/..., goo.gl/maps/..."
  - "Shared text containing any of the above"

resolution_order:
  details: "Place identifier in the link (needs an API key)"
  search: "Name or coordinates from the link (needs an API key)"
  scrape: "Rendered map page in headless Chrome"

commands:
  resolve: |
    placeshelf resolve "https://maps.app.goo.gl/abc123"
    placeshelf resolve --format yaml --fields name,address,lat,lng "<link>"
    pbpaste | placeshelf resolve

  add: |
    placeshelf add --collection paris "<link>"
    placeshelf add --collection paris --force "<link>"

  check: |
    placeshelf check --collection paris --url "<resolved link>"
    placeshelf check --collection paris --lat 48.8584 --lng 2.2945

  browse: |
    placeshelf collections
    placeshelf list --collection paris
    placeshelf delete <place-id>
    placeshelf history --limit 20

configuration:
  file: "placeshelf.yaml (or --config)"
  env:
    - "GOOGLE_MAPS_API_KEY or PLACES_API_KEY"
    - "APP_ENV=production for sandboxed hosts"
    - "CHROME_PATH, HEADLESS, PLACESHELF_DB"
  dotenv: ".env in the working directory is loaded first"

exit_codes:
  0: "Success"
  1: "Not a map link, expansion failed, or place unresolvable"
  2: "Configuration, database or output failure"
`
