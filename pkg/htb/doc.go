// Package htb provides a client for the Hack The Box labs API.
//
// This package includes:
//   - An HTTP client that sends the bearer token and curl-like headers
//   - Models for the machine profile response
//   - Helpers for building the profile, writeup and web URLs
//
// Example usage:
//
//	client := htb.NewClient(&cfg.API, logger.GetLogger())
//
//	name, ok := client.MachineName(ctx, 1)
//	if !ok {
//	    // skip this machine
//	}
//
//	resp, err := client.Get(ctx, htb.WriteupURL(cfg.API.BaseURL, 1))
//	if err != nil {
//	    var apiErr *errors.Error
//	    if stderrors.As(err, &apiErr) && apiErr.Type == errors.ErrorTypeNetwork {
//	        // transport failure
//	    }
//	}
//	defer resp.Body.Close()
package htb
