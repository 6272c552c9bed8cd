package client

const (
	qSchemaVersion = `
		SELECT version FROM schema_version LIMIT 1`

	qSchemaVersionInsert = `
		INSERT INTO schema_version (version) VALUES ($1)`

	qTruncateWallets = `
		TRUNCATE wallet_transactions`

	qTruncateProgress = `
		TRUNCATE bridge_progress`

	qTruncateInteractions = `
		TRUNCATE uniswap_interactions`

	qTruncateSchemaVersion = `
		TRUNCATE schema_version`

	qBridgeProgress = `
		SELECT next_block, chunk_size
			FROM bridge_progress
			WHERE job_id = $1`

	qBridgeProgressUpsert = `
		INSERT INTO bridge_progress (job_id, next_block, chunk_size, updated_at)
			VALUES ($1, $2, $3, now())
		ON CONFLICT (job_id) DO UPDATE
			SET next_block = excluded.next_block,
			    chunk_size = excluded.chunk_size,
			    updated_at = excluded.updated_at`

	qWalletRecord = `
		SELECT wallet_data, row_version, created_at, updated_at
			FROM wallet_transactions
			WHERE wallet_address = $1`

	qWalletRecordInsert = `
		INSERT INTO wallet_transactions (wallet_address, wallet_data)
			VALUES ($1, $2)
		ON CONFLICT (wallet_address) DO NOTHING`

	// Optimistic concurrency: the update applies only if the row version is
	// unchanged since the read; zero rows affected means a concurrent merge
	// won the race and the whole merge is retried from the read step.
	qWalletRecordUpdate = `
		UPDATE wallet_transactions
			SET wallet_data = $2,
			    row_version = row_version + 1,
			    updated_at = now()
			WHERE wallet_address = $1 AND row_version = $3`

	qUniswapInteraction = `
		SELECT interacted
			FROM uniswap_interactions
			WHERE wallet_address = $1`

	qUniswapInteractionInsert = `
		INSERT INTO uniswap_interactions (wallet_address, interacted)
			VALUES ($1, $2)
		ON CONFLICT (wallet_address) DO NOTHING`
)
