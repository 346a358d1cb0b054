// Command kirana runs the storefront and its maintenance tasks.
//
//	kirana serve            # HTTP API, in-process workers and scheduler
//	kirana migrate          # run pending SQL migrations
//	kirana migrate:rollback
//	kirana migrate:status
//	kirana seed [name...]   # admin account and demo catalog
//	kirana classify         # recompute every category's type once
//	kirana queue:work       # queue workers only (QUEUE_DRIVER=redis)
//	kirana schedule:run     # scheduler only
//	kirana route:list
package main
