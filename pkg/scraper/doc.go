// Package scraper drives a full download run over a range of machine IDs.
//
// For every ID the scraper:
//   - Skips it silently when it is in the ignore list
//   - Pauses first when the pacer says the ID is due
//   - Resolves the machine name through the profile endpoint
//   - Downloads the writeup PDF through the fetcher
//
// Every ID that could not be resolved or downloaded is collected as a
// Failure. At the end of the run the scraper prints the web pages where
// those writeups can be fetched by hand.
//
// Example:
//
//	s, err := scraper.New(cfg, console)
//	if err != nil {
//	    return err
//	}
//	report, err := s.Run(ctx)
package scraper
