// Package api serves the card configuration and dashboard storage endpoints
// over HTTP.
//
// Routes:
//
//	GET  /api/yinkun_ui                 status, no auth
//	GET  /api/yinkun_ui/card_config     one card (?cardId=) or the whole table
//	POST /api/yinkun_ui/card_config     upsert {"cardId": .., "config": {..}}
//	GET  /api/health                    liveness, no auth
//	GET  /api/storage                   dashboard document
//	POST /api/storage                   replace dashboard document
package api
