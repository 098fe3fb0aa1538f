package main

var (
	HeroEyebrow = "Portfolio"

	HeroTagline = `Analytical, detail-oriented, and impactful data analyst`

	TerminalIntro = `Query my portfolio data using real SQL. Try exploring projects, skills,
	experience, and more. Press Ctrl+Enter to run a query.`

	ContactIntro = `Hiring, collaborating, or just curious about a project? Send a note and your
	email client will open with the message ready to go.`

	ContactNotice = `Your message opens in your email client. Nothing you type here is stored.`

	ContactSuccess = `Opening email client...`

	ContactInvalid = `Please fix the form errors`

	PrivacySummary = `This site counts page views so I know which sections are useful. Addresses
	are hashed with a per-process salt before they are stored, and the raw address never touches
	disk. Requests that send the Do Not Track header are not counted. Queries typed into the SQL
	terminal are kept alongside the hashed address so I can see which tables people explore.
	Records are deleted automatically once they pass the retention period.`
)
